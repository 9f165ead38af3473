package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketRanking_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		ranking BucketRanking
		wantErr bool
	}{
		{
			name:    "valid ranking",
			ranking: BucketRanking{Bucket: "Policy", Confidence: 85},
		},
		{
			name:    "empty bucket name",
			ranking: BucketRanking{Confidence: 50},
			wantErr: true,
			errMsg:  "bucket name is required",
		},
		{
			name:    "confidence too low",
			ranking: BucketRanking{Bucket: "Policy", Confidence: -1},
			wantErr: true,
			errMsg:  "confidence must be between 0 and 100, got -1",
		},
		{
			name:    "confidence too high",
			ranking: BucketRanking{Bucket: "Policy", Confidence: 101},
			wantErr: true,
			errMsg:  "confidence must be between 0 and 100, got 101",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ranking.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBucketRankings_Ordering(t *testing.T) {
	rankings := BucketRankings{
		{Bucket: "Technical", Confidence: 40},
		{Bucket: "Policy", Confidence: 90},
		{Bucket: "Governance", Confidence: 40},
	}

	top := rankings.Top()
	require.NotNil(t, top)
	assert.Equal(t, "Policy", top.Bucket)

	second := rankings.Nth(1)
	require.NotNil(t, second)
	assert.Equal(t, "Governance", second.Bucket, "ties break alphabetically")

	assert.Nil(t, rankings.Nth(3))
	assert.Equal(t, "Technical", rankings[0].Bucket, "Sorted must not reorder the receiver")
}

func TestBucketRankings_AboveThreshold(t *testing.T) {
	rankings := BucketRankings{
		{Bucket: "A", Confidence: 90},
		{Bucket: "B", Confidence: 29},
		{Bucket: "C", Confidence: 30},
	}

	filtered := rankings.AboveThreshold(30)
	assert.Equal(t, "A: 90%\nC: 30%", filtered.Render())
	assert.Empty(t, BucketRankings{}.AboveThreshold(0))
}

func TestBucketRankings_ValidateDuplicates(t *testing.T) {
	rankings := BucketRankings{
		{Bucket: "A", Confidence: 90},
		{Bucket: "A", Confidence: 50},
	}
	err := rankings.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate bucket "A"`)
}
