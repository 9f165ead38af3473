package model

import (
	"fmt"
	"sort"
	"strings"
)

// BucketRanking is one "<bucket>: <confidence>%" line of a ranked-list answer.
type BucketRanking struct {
	Bucket     string
	Confidence int
}

// String renders the ranking in the line form the model was asked to produce.
func (r BucketRanking) String() string {
	return fmt.Sprintf("%s: %d%%", r.Bucket, r.Confidence)
}

// Validate ensures the BucketRanking has valid data.
func (r *BucketRanking) Validate() error {
	if strings.TrimSpace(r.Bucket) == "" {
		return fmt.Errorf("bucket name is required")
	}

	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %d", r.Confidence)
	}

	return nil
}

// BucketRankings is a slice of BucketRanking that supports sorting and utility methods.
type BucketRankings []BucketRanking

// Len implements sort.Interface.
func (r BucketRankings) Len() int {
	return len(r)
}

// Less implements sort.Interface - higher confidence comes first.
func (r BucketRankings) Less(i, j int) bool {
	if r[i].Confidence != r[j].Confidence {
		return r[i].Confidence > r[j].Confidence
	}
	return r[i].Bucket < r[j].Bucket
}

// Swap implements sort.Interface.
func (r BucketRankings) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

// Sorted returns a copy ordered by confidence, highest first.
func (r BucketRankings) Sorted() BucketRankings {
	out := make(BucketRankings, len(r))
	copy(out, r)
	sort.Stable(out)
	return out
}

// Top returns the highest-confidence bucket, or nil if empty.
func (r BucketRankings) Top() *BucketRanking {
	return r.Nth(0)
}

// Nth returns the n-th best bucket (0-based), or nil when there are not enough.
func (r BucketRankings) Nth(n int) *BucketRanking {
	if n < 0 || n >= len(r) {
		return nil
	}
	sorted := r.Sorted()
	return &sorted[n]
}

// AboveThreshold returns the rankings at or above the threshold, keeping their order.
func (r BucketRankings) AboveThreshold(threshold int) BucketRankings {
	var result BucketRankings
	for _, ranking := range r {
		if ranking.Confidence >= threshold {
			result = append(result, ranking)
		}
	}
	return result
}

// Validate ensures all rankings in the slice are valid.
func (r BucketRankings) Validate() error {
	seen := make(map[string]bool)

	for i, ranking := range r {
		if err := ranking.Validate(); err != nil {
			return fmt.Errorf("invalid ranking at index %d: %w", i, err)
		}

		if seen[ranking.Bucket] {
			return fmt.Errorf("duplicate bucket %q in rankings", ranking.Bucket)
		}
		seen[ranking.Bucket] = true
	}

	return nil
}

// Render joins the rankings into the newline-separated block form.
func (r BucketRankings) Render() string {
	lines := make([]string, 0, len(r))
	for _, ranking := range r {
		lines = append(lines, ranking.String())
	}
	return strings.Join(lines, "\n")
}
