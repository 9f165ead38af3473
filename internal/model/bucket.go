package model

import (
	"fmt"
	"strings"
)

// Bucket is a named classification target.
type Bucket struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// BucketContext describes the candidate targets for one batch. It is either a
// free-text block or an ordered list of buckets, and is shared read-only by
// every evaluation in the batch.
type BucketContext struct {
	Text    string
	Buckets []Bucket
}

// NewTextContext returns a context made of a single free-text block.
func NewTextContext(text string) BucketContext {
	return BucketContext{Text: text}
}

// NewBucketListContext returns a context made of named bucket descriptions.
func NewBucketListContext(buckets []Bucket) BucketContext {
	copied := make([]Bucket, len(buckets))
	copy(copied, buckets)
	return BucketContext{Buckets: copied}
}

// IsEmpty reports whether the context names nothing to classify into.
func (c BucketContext) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.Buckets) == 0
}

// Render produces the text interpolated into the system prompt.
func (c BucketContext) Render() string {
	if len(c.Buckets) == 0 {
		return c.Text
	}

	var sb strings.Builder
	for i, b := range c.Buckets {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n%s", b.Name, strings.TrimSpace(b.Description)))
	}
	return sb.String()
}
