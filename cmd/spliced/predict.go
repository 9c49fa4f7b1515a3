package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/agenthands/spliced/internal/config"
	"github.com/agenthands/spliced/internal/core"
	"github.com/agenthands/spliced/internal/core/model"
	"github.com/agenthands/spliced/internal/logger"
)

type predictOptions struct {
	configPath string
	output     string
	predictors []string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spliced",
		Short:         "Predict whether a spliced package still works",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newPredictCmd())
	return root
}

func newPredictCmd() *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict <splice.json>",
		Short: "Run the compatibility predictors on a splice description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runPredict(ctx, opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "TOML configuration file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result set here instead of stdout")
	cmd.Flags().StringSliceVarP(&opts.predictors, "predictor", "p", nil, "only run these predictors (libabigail, smeagle, symbols)")
	return cmd
}

func runPredict(ctx context.Context, opts *predictOptions, path string, stdout io.Writer) error {
	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open splice description: %w", err)
	}
	splice, err := model.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	engine, err := core.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close(context.Background())

	result, err := engine.Predict(ctx, splice, opts.predictors...)
	if err != nil {
		return err
	}
	if err := engine.SaveResult(ctx, splice, result); err != nil {
		return err
	}

	out := stdout
	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
