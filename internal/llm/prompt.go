package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/bucketeer/internal/model"
)

// RenderRecord renders the selected fields as "### <label>" blocks in the
// configured order. Fields with blank values are omitted.
func RenderRecord(record model.Record, inputs []model.FieldMapping) string {
	blocks := make([]string, 0, len(inputs))
	for _, input := range inputs {
		value := record.Value(input.Field)
		if strings.TrimSpace(value) == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("### %s\n\n%s", input.DisplayLabel(), value))
	}
	return strings.Join(blocks, "\n\n")
}

// BuildConversation produces the two-message conversation for one record:
// the rendered record as the user message, then the grammar's instructions
// with the bucket context interpolated verbatim as the system message.
func BuildConversation(record model.Record, inputs []model.FieldMapping, bucketContext string, grammar Grammar) model.Conversation {
	return model.Conversation{
		{Role: model.RoleUser, Content: RenderRecord(record, inputs)},
		{Role: model.RoleSystem, Content: grammar.Instructions(bucketContext)},
	}
}

const scoreInstructions = `Evaluate the application above against the following criteria: %s

You should ignore general statements or facts about the world, and focus on what the applicant themselves has achieved. You do not need to structure your assessment similar to the answers the user has given.

First explain your reasoning in no more than 150 words, then give a final ranking on a scale from 1 to 5, where 1 is a poor fit and 5 is an excellent fit. The final ranking must be a whole number.

End your answer with the final ranking in the following format:

%s = <integer>`

const rankedListInstructions = `Classify this applicant into one or more of the following buckets:

%s

You should ignore general statements or facts about the world, and focus on what the applicant themselves has achieved. You do not need to structure your assessment similar to the answers the user has given.

Keep your reasoning to no more than 150 words. Then rank the buckets by fit, best first, with whole-number confidence scores (0-100%%). Only include buckets where the confidence is at least %d%%. Always include at least the single best-fitting bucket.

End your answer with the rankings in the following format, one bucket per line:

%s
Bucket A: 90%%
Bucket B: 75%%`

// Instructions renders the system message for this grammar.
func (g Grammar) Instructions(bucketContext string) string {
	switch g.Kind {
	case GrammarRankedList:
		return fmt.Sprintf(rankedListInstructions, bucketContext, g.confidenceFloor(), g.keyword())
	default:
		return fmt.Sprintf(scoreInstructions, bucketContext, g.keyword())
	}
}
