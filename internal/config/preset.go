package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/engine"
	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
)

// OutputSpec is a destination field in a preset.
type OutputSpec struct {
	Field    string `mapstructure:"field" yaml:"field,omitempty"`
	Criteria string `mapstructure:"criteria" yaml:"criteria,omitempty"`
}

// Preset is a named evaluation setup stored under presets.<name>.
type Preset struct {
	Name       string               `mapstructure:"-" yaml:"-"`
	Grammar    string               `mapstructure:"grammar" yaml:"grammar,omitempty"`
	Keyword    string               `mapstructure:"keyword" yaml:"keyword,omitempty"`
	BucketText string               `mapstructure:"bucket_text" yaml:"bucket_text,omitempty"`
	LogsField  string               `mapstructure:"logs_field" yaml:"logs_field,omitempty"`
	Buckets    []string             `mapstructure:"buckets" yaml:"buckets,omitempty"`
	Inputs     []model.FieldMapping `mapstructure:"inputs" yaml:"inputs,omitempty"`
	Outputs    []OutputSpec         `mapstructure:"outputs" yaml:"outputs,omitempty"`

	FirstChoiceField            string `mapstructure:"first_choice_field" yaml:"first_choice_field,omitempty"`
	FirstChoiceConfidenceField  string `mapstructure:"first_choice_confidence_field" yaml:"first_choice_confidence_field,omitempty"`
	SecondChoiceField           string `mapstructure:"second_choice_field" yaml:"second_choice_field,omitempty"`
	SecondChoiceConfidenceField string `mapstructure:"second_choice_confidence_field" yaml:"second_choice_confidence_field,omitempty"`

	MinConfidence int `mapstructure:"min_confidence" yaml:"min_confidence,omitempty"`
	MaxTokens     int `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	MaxAttempts   int `mapstructure:"max_attempts" yaml:"max_attempts,omitempty"`
}

// PresetNames returns the configured preset names, sorted.
func PresetNames(v *viper.Viper) []string {
	names := make([]string, 0)
	for name := range v.GetStringMap("presets") {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPreset decodes presets.<name>.
func LoadPreset(v *viper.Viper, name string) (*Preset, error) {
	key := "presets." + strings.ToLower(strings.TrimSpace(name))
	if !v.IsSet(key) {
		return nil, common.NewConfigError("preset", fmt.Sprintf("preset %q not found", name))
	}

	var preset Preset
	if err := v.UnmarshalKey(key, &preset); err != nil {
		return nil, fmt.Errorf("failed to decode preset %q: %w", name, err)
	}
	preset.Name = name
	return &preset, nil
}

// EngineConfig converts the preset into runner settings on top of engine.DefaultConfig.
func (p *Preset) EngineConfig() (engine.Config, error) {
	grammar, err := llm.NewGrammar(p.Grammar, p.Keyword)
	if err != nil {
		return engine.Config{}, common.NewConfigError("grammar", err.Error())
	}

	cfg := engine.DefaultConfig()
	cfg.Grammar = grammar
	cfg.Inputs = p.Inputs
	cfg.LogsField = p.LogsField
	cfg.FirstChoiceField = p.FirstChoiceField
	cfg.FirstChoiceConfidenceField = p.FirstChoiceConfidenceField
	cfg.SecondChoiceField = p.SecondChoiceField
	cfg.SecondChoiceConfidenceField = p.SecondChoiceConfidenceField
	cfg.MinConfidence = p.MinConfidence
	if p.MinConfidence > 0 {
		cfg.Grammar.ConfidenceFloor = p.MinConfidence
	}

	if p.MaxTokens > 0 {
		cfg.MaxTokens = p.MaxTokens
	}
	if p.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = p.MaxAttempts
	}

	for _, output := range p.Outputs {
		cfg.Outputs = append(cfg.Outputs, engine.Output{Field: output.Field, Criteria: output.Criteria})
	}

	return cfg, nil
}

// BucketContext resolves the preset's buckets against the stored ones.
// Free text wins when set; otherwise the named buckets are used in preset
// order, or every stored bucket when none are named.
func (p *Preset) BucketContext(stored []model.Bucket) (model.BucketContext, error) {
	if strings.TrimSpace(p.BucketText) != "" {
		return model.NewTextContext(p.BucketText), nil
	}

	if len(p.Buckets) == 0 {
		return model.NewBucketListContext(stored), nil
	}

	byName := make(map[string]model.Bucket, len(stored))
	for _, b := range stored {
		byName[strings.ToLower(b.Name)] = b
	}

	selected := make([]model.Bucket, 0, len(p.Buckets))
	for _, name := range p.Buckets {
		b, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return model.BucketContext{}, common.NewConfigError("buckets", fmt.Sprintf("bucket %q does not exist", name))
		}
		selected = append(selected, b)
	}
	return model.NewBucketListContext(selected), nil
}
