package llm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/model"
)

// GrammarKind selects how generated text is parsed.
type GrammarKind string

// Supported grammars.
const (
	// GrammarScore expects "<KEYWORD> = <integer>".
	GrammarScore GrammarKind = "score"
	// GrammarRankedList expects a "<KEYWORD>" line followed by "<bucket>: <n>%" lines.
	GrammarRankedList GrammarKind = "ranked_list"
)

// Default grammar keywords.
const (
	DefaultScoreKeyword      = "FINAL_RANKING"
	DefaultRankedListKeyword = "BUCKET_RANKINGS"
	DefaultConfidenceFloor   = 30
)

// integralTolerance is how far a score may stray from a whole number.
const integralTolerance = 0.01

// maxScore bounds the scores the parser accepts.
const maxScore = math.MaxInt32

// Grammar is the configured textual contract for model output.
type Grammar struct {
	Kind    GrammarKind
	Keyword string
	// ConfidenceFloor is the minimum confidence the model is told to report.
	ConfidenceFloor int
}

// NewGrammar validates the kind and applies default keywords.
func NewGrammar(kind, keyword string) (Grammar, error) {
	g := Grammar{Kind: GrammarKind(strings.ToLower(strings.TrimSpace(kind))), Keyword: strings.TrimSpace(keyword)}
	switch g.Kind {
	case GrammarScore, GrammarRankedList:
	case "":
		g.Kind = GrammarScore
	default:
		return Grammar{}, fmt.Errorf("%w: unknown grammar %q", common.ErrInvalidConfig, kind)
	}
	g.Keyword = g.keyword()
	return g, nil
}

func (g Grammar) keyword() string {
	if g.Keyword != "" {
		return g.Keyword
	}
	if g.Kind == GrammarRankedList {
		return DefaultRankedListKeyword
	}
	return DefaultScoreKeyword
}

func (g Grammar) confidenceFloor() int {
	if g.ConfidenceFloor > 0 {
		return g.ConfidenceFloor
	}
	return DefaultConfidenceFloor
}

// Parsed is the structured result of a successful parse. Exactly one of
// Score (GrammarScore) or Block/Rankings (GrammarRankedList) is meaningful.
type Parsed struct {
	Kind     GrammarKind
	Block    string
	Rankings model.BucketRankings
	Score    int
}

// Value returns the value stored in the output field.
func (p Parsed) Value() any {
	if p.Kind == GrammarRankedList {
		return p.Block
	}
	return p.Score
}

// Parse extracts the structured result from generated text. Any mismatch is
// reported as *common.ParseError; partial results are never returned.
func (g Grammar) Parse(text string) (Parsed, error) {
	if g.Kind == GrammarRankedList {
		return g.parseRankedList(text)
	}
	return g.parseScore(text)
}

func (g Grammar) parseError(reason, text string) error {
	return &common.ParseError{Grammar: g.keyword(), Reason: reason, Text: text}
}

func (g Grammar) parseScore(text string) (Parsed, error) {
	re := regexp.MustCompile(regexp.QuoteMeta(g.keyword()) + `\s*=\s*([\d.]+)`)
	match := re.FindStringSubmatch(text)
	if match == nil {
		return Parsed{}, g.parseError("missing final ranking", text)
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(match[1], "."), 64)
	if err != nil {
		return Parsed{}, g.parseError(fmt.Sprintf("invalid final ranking: %s", match[1]), text)
	}

	rounded := math.Round(value)
	if math.Abs(rounded-value) > integralTolerance {
		return Parsed{}, g.parseError(fmt.Sprintf("non-integer final ranking: %s", match[1]), text)
	}
	if rounded > maxScore {
		return Parsed{}, g.parseError(fmt.Sprintf("final ranking out of range: %s", match[1]), text)
	}

	return Parsed{Kind: GrammarScore, Score: int(rounded)}, nil
}

// Bucket names may contain colons; the confidence follows the last one.
var rankingLine = regexp.MustCompile(`^\s*(.+?)\s*:\s*(\d{1,3})\s*%\s*$`)

func (g Grammar) parseRankedList(text string) (Parsed, error) {
	re := regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(g.keyword()) +
		`[ \t]*[:=]?[ \t]*\r?\n(?:[ \t]*\r?\n)*((?:[ \t]*[^\n]+?[ \t]*:[ \t]*\d{1,3}[ \t]*%[ \t]*(?:\r?\n|$))+)`)
	match := re.FindStringSubmatch(text)
	if match == nil {
		return Parsed{}, g.parseError("missing bucket rankings", text)
	}

	block := strings.TrimSpace(match[1])
	lines := strings.Split(block, "\n")
	rankings := make(model.BucketRankings, 0, len(lines))
	for _, line := range lines {
		parts := rankingLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if parts == nil {
			return Parsed{}, g.parseError(fmt.Sprintf("malformed ranking line: %q", line), text)
		}
		confidence, err := strconv.Atoi(parts[2])
		if err != nil {
			return Parsed{}, g.parseError(fmt.Sprintf("malformed confidence: %q", line), text)
		}
		rankings = append(rankings, model.BucketRanking{Bucket: parts[1], Confidence: confidence})
	}

	if err := rankings.Validate(); err != nil {
		return Parsed{}, g.parseError(fmt.Sprintf("invalid bucket rankings: %v", err), text)
	}

	return Parsed{Kind: GrammarRankedList, Block: block, Rankings: rankings}, nil
}
