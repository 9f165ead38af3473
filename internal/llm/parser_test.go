package llm

import (
	"testing"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrammar_ParseScore(t *testing.T) {
	grammar, err := NewGrammar("score", "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		text      string
		errReason string
		want      int
	}{
		{
			name: "integer ranking",
			text: "The applicant shows strong leadership.\n\nFINAL_RANKING = 7",
			want: 7,
		},
		{
			name: "no spaces around equals",
			text: "FINAL_RANKING=3 is my answer",
			want: 3,
		},
		{
			name: "trailing period",
			text: "FINAL_RANKING = 4.",
			want: 4,
		},
		{
			name: "within tolerance",
			text: "FINAL_RANKING = 4.005",
			want: 4,
		},
		{
			name:      "fractional ranking",
			text:      "Somewhere between. FINAL_RANKING = 7.6",
			errReason: "non-integer final ranking: 7.6",
		},
		{
			name:      "missing keyword",
			text:      "I would rate this applicant 4 out of 5.",
			errReason: "missing final ranking",
		},
		{
			name:      "keyword without number",
			text:      "FINAL_RANKING = unknown",
			errReason: "missing final ranking",
		},
		{
			name:      "too large to represent",
			text:      "FINAL_RANKING = 99999999999999999999",
			errReason: "final ranking out of range: 99999999999999999999",
		},
		{
			name: "largest accepted",
			text: "FINAL_RANKING = 2147483647",
			want: 2147483647,
		},
		{
			name:      "malformed number",
			text:      "FINAL_RANKING = 1.2.3",
			errReason: "invalid final ranking: 1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := grammar.Parse(tt.text)
			if tt.errReason != "" {
				require.Error(t, err)
				var parseErr *common.ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, tt.errReason, parseErr.Reason)
				assert.Equal(t, tt.text, parseErr.Text)
				assert.Equal(t, Parsed{}, parsed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, parsed.Score)
			assert.Equal(t, tt.want, parsed.Value())
		})
	}
}

func TestGrammar_ParseScoreCustomKeyword(t *testing.T) {
	grammar, err := NewGrammar("score", "SCORE")
	require.NoError(t, err)

	parsed, err := grammar.Parse("SCORE = 2")
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.Score)

	_, err = grammar.Parse("FINAL_RANKING = 2")
	assert.Error(t, err)
}

func TestGrammar_ParseRankedList(t *testing.T) {
	grammar, err := NewGrammar("ranked_list", "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		text      string
		wantBlock string
		errReason string
		want      model.BucketRankings
	}{
		{
			name:      "plain block",
			text:      "BUCKET_RANKINGS\nBucket A: 90%\nBucket B: 40%\n",
			wantBlock: "Bucket A: 90%\nBucket B: 40%",
			want: model.BucketRankings{
				{Bucket: "Bucket A", Confidence: 90},
				{Bucket: "Bucket B", Confidence: 40},
			},
		},
		{
			name:      "reasoning before and prose after",
			text:      "The applicant led a policy fellowship.\n\nBUCKET_RANKINGS:\n\nPolicy: 85%\nGovernance: 35%\n\nLet me know if you need more.",
			wantBlock: "Policy: 85%\nGovernance: 35%",
			want: model.BucketRankings{
				{Bucket: "Policy", Confidence: 85},
				{Bucket: "Governance", Confidence: 35},
			},
		},
		{
			name:      "windows line endings",
			text:      "BUCKET_RANKINGS\r\nTechnical: 70%\r\n",
			wantBlock: "Technical: 70%",
			want:      model.BucketRankings{{Bucket: "Technical", Confidence: 70}},
		},
		{
			name:      "bucket names containing colons",
			text:      "BUCKET_RANKINGS\nTier 1: Founders: 90%\nBucket B: 40%\n",
			wantBlock: "Tier 1: Founders: 90%\nBucket B: 40%",
			want: model.BucketRankings{
				{Bucket: "Tier 1: Founders", Confidence: 90},
				{Bucket: "Bucket B", Confidence: 40},
			},
		},
		{
			name:      "missing keyword",
			text:      "Bucket A: 90%\nBucket B: 40%",
			errReason: "missing bucket rankings",
		},
		{
			name:      "keyword without entries",
			text:      "BUCKET_RANKINGS\nnone of these fit",
			errReason: "missing bucket rankings",
		},
		{
			name:      "keyword mentioned inline only",
			text:      "I will give BUCKET_RANKINGS below.\nBucket A: 90%",
			errReason: "missing bucket rankings",
		},
		{
			name:      "confidence above 100",
			text:      "BUCKET_RANKINGS\nBucket A: 190%",
			errReason: "invalid bucket rankings: invalid ranking at index 0: confidence must be between 0 and 100, got 190",
		},
		{
			name:      "duplicate bucket",
			text:      "BUCKET_RANKINGS\nBucket A: 90%\nBucket A: 40%",
			errReason: `invalid bucket rankings: duplicate bucket "Bucket A" in rankings`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := grammar.Parse(tt.text)
			if tt.errReason != "" {
				var parseErr *common.ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, tt.errReason, parseErr.Reason)
				assert.Equal(t, "BUCKET_RANKINGS", parseErr.Grammar)
				assert.Equal(t, tt.text, parseErr.Text)
				assert.Equal(t, Parsed{}, parsed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBlock, parsed.Block)
			assert.Equal(t, tt.wantBlock, parsed.Value())
			assert.Equal(t, tt.want, parsed.Rankings)
		})
	}
}

func TestNewGrammar(t *testing.T) {
	g, err := NewGrammar("", "")
	require.NoError(t, err)
	assert.Equal(t, GrammarScore, g.Kind)
	assert.Equal(t, DefaultScoreKeyword, g.Keyword)

	g, err = NewGrammar("RANKED_LIST", "")
	require.NoError(t, err)
	assert.Equal(t, GrammarRankedList, g.Kind)
	assert.Equal(t, DefaultRankedListKeyword, g.Keyword)

	_, err = NewGrammar("json", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
