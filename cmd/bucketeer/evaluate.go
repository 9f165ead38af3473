package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/bucketeer/internal/cli"
	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/config"
	"github.com/Veraticus/bucketeer/internal/engine"
	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
	"github.com/Veraticus/bucketeer/internal/service"
)

type evaluateOptions struct {
	preset string
	yes    bool
	dryRun bool
}

func evaluateCmd() *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate every record against the preset's buckets",
		Long: `Run every imported record through the model using a preset from the
config file. A preview with the estimated time and cost is shown first.

With --dry-run an offline deterministic model answers instead and nothing
is written to the database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), !opts.dryRun)

			_, err = runEvaluate(ctx, viper.GetViper(), store, opts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err == nil && handler.WasInterrupted() {
				return common.NewUserError("Evaluation interrupted.", context.Canceled)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.preset, "preset", "p", "", "Preset to run (see: bucketeer presets)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Use an offline deterministic model and do not save results")
	_ = cmd.MarkFlagRequired("preset")

	return cmd
}

// runEvaluate loads everything a run needs, asks for confirmation and runs
// the batch. A nil outcome with a nil error means the user declined.
func runEvaluate(ctx context.Context, v *viper.Viper, store service.RecordStore, opts evaluateOptions, in io.Reader, out io.Writer) (*model.BatchOutcome, error) {
	preset, err := config.LoadPreset(v, opts.preset)
	if err != nil {
		return nil, err
	}

	cfg, err := preset.EngineConfig()
	if err != nil {
		return nil, err
	}

	stored, err := store.GetBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load buckets: %w", err)
	}
	buckets, err := preset.BucketContext(stored)
	if err != nil {
		return nil, err
	}

	// Reject a broken preset before spending time on records or the prompt.
	if err := cfg.Validate(buckets); err != nil {
		return nil, err
	}

	records, err := store.GetRecords(ctx, model.FieldNames(cfg.Inputs))
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return nil, common.NewUserError("No records to evaluate. Run: bucketeer import records <file>", common.ErrNoRecords)
	}

	estimate := cli.EstimateRun(len(records), len(cfg.Outputs))
	fmt.Fprintln(out, cli.RenderPreview(preset.Name, estimate, buckets))

	if !opts.yes {
		ok, err := cli.Confirm(ctx, in, out, "Start evaluation?")
		if err != nil {
			return nil, err
		}
		if !ok {
			fmt.Fprintln(out, cli.FormatInfo("Evaluation cancelled."))
			return nil, nil
		}
	}

	client, err := newEvaluationClient(ctx, v, &cfg, preset, buckets, opts.dryRun)
	if err != nil {
		return nil, err
	}

	runOpts := []engine.RunnerOption{engine.WithLogger(slog.Default())}
	if !opts.dryRun {
		runOpts = append(runOpts, engine.WithWriter(store))
	}
	runner := engine.NewRunner(client, cfg, runOpts...)

	bar := cli.NewProgressReporter(out, "Evaluating")
	outcome, err := runner.Run(ctx, records, buckets, bar.Update)
	bar.Finish()
	if err != nil {
		return nil, err
	}

	if err := cli.WriteOutcome(out, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// newEvaluationClient builds the completion client for the run and fills in
// the token budget from the provider config when the preset leaves it unset.
func newEvaluationClient(ctx context.Context, v *viper.Viper, cfg *engine.Config, preset *config.Preset, buckets model.BucketContext, dryRun bool) (llm.Client, error) {
	if dryRun {
		concurrency := v.GetInt("llm.concurrency")
		mock := engine.NewDeterministicClient(cfg.Grammar, buckets.Buckets)
		return llm.WithLimiter(mock, llm.SharedLimiter(concurrency)), nil
	}

	llmCfg, err := config.LoadLLMConfig(v)
	if err != nil {
		return nil, err
	}
	if preset.MaxTokens <= 0 {
		cfg.MaxTokens = llmCfg.MaxTokens
	}

	client, err := llm.NewClient(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}
