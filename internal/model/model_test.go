package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversation_WithReplyDoesNotMutate(t *testing.T) {
	conv := Conversation{
		{Role: RoleUser, Content: "### Name\n\nAda"},
		{Role: RoleSystem, Content: "Classify"},
	}

	transcript := conv.WithReply("FINAL_RANKING = 4")

	assert.Len(t, conv, 2)
	assert.Len(t, transcript, 3)
	assert.Equal(t, "## user\n\n### Name\n\nAda\n\n## system\n\nClassify\n\n## assistant\n\nFINAL_RANKING = 4", transcript.Transcript())
}

func TestBucketContext_Render(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		ctx      BucketContext
		empty    bool
	}{
		{
			name:     "free text is verbatim",
			ctx:      NewTextContext("Technical AI safety, AI governance"),
			expected: "Technical AI safety, AI governance",
		},
		{
			name: "bucket list keeps order",
			ctx: NewBucketListContext([]Bucket{
				{Name: "Technical", Description: "Builds things. "},
				{Name: "Policy", Description: "Writes rules."},
			}),
			expected: "## Technical\n\nBuilds things.\n\n## Policy\n\nWrites rules.",
		},
		{
			name:  "empty context",
			ctx:   BucketContext{Text: "   "},
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.ctx.IsEmpty())
			if !tt.empty {
				assert.Equal(t, tt.expected, tt.ctx.Render())
			}
		})
	}
}

func TestFieldMapping_DisplayLabel(t *testing.T) {
	assert.Equal(t, "Why do you want to join?", FieldMapping{Field: "fld1", Label: "Why do you want to join?"}.DisplayLabel())
	assert.Equal(t, "fld1", FieldMapping{Field: "fld1", Label: "  "}.DisplayLabel())
	assert.Equal(t, []string{"a", "b"}, FieldNames([]FieldMapping{{Field: "a"}, {Field: "b", Label: "B"}}))
}

func TestBatchOutcome_Summary(t *testing.T) {
	outcome := &BatchOutcome{
		Successes: []EvaluationResult{{RecordID: "rec2"}, {RecordID: "rec1"}},
		Failures:  []RecordFailure{{RecordID: "rec3", Err: errors.New("boom")}},
	}

	outcome.SortByRecordID()

	assert.Equal(t, 3, outcome.Total())
	assert.Equal(t, "rec1", outcome.Successes[0].RecordID)
	assert.Equal(t, "Successfully created 2 evaluation(s). Failed 1 times. See logs for failure details.", outcome.Summary())
	assert.Equal(t, "Successfully created 0 evaluation(s).", (&BatchOutcome{}).Summary())
}
