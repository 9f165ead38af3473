package engine

import (
	"math"
	"sync/atomic"
)

// Progress aggregates completion events from many goroutines through a single
// consumer, so the reported fraction never decreases.
type Progress struct {
	fn      ProgressFunc
	updates chan int
	done    chan struct{}
	bits    atomic.Uint64
	total   int
	// completed is owned by the consumer goroutine.
	completed int
}

func newProgress(total int, fn ProgressFunc) *Progress {
	p := &Progress{
		fn:      fn,
		total:   total,
		updates: make(chan int, 64),
		done:    make(chan struct{}),
	}
	p.report(0)
	go p.consume()
	return p
}

func (p *Progress) consume() {
	defer close(p.done)
	for n := range p.updates {
		p.completed += n
		if p.completed > p.total {
			p.completed = p.total
		}
		p.report(float64(p.completed) / float64(p.total))
	}
}

func (p *Progress) report(value float64) {
	p.bits.Store(math.Float64bits(value))
	if p.fn != nil {
		p.fn(value)
	}
}

// add records n finished units. It must not be called after close.
func (p *Progress) add(n int) {
	if n > 0 {
		p.updates <- n
	}
}

// close drains pending events and stops the consumer.
func (p *Progress) close() {
	close(p.updates)
	<-p.done
	if p.total == 0 {
		p.report(1)
	}
}

// Value returns the most recently reported fraction.
func (p *Progress) Value() float64 {
	return math.Float64frombits(p.bits.Load())
}
