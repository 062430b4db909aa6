package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"macrodash/internal/bootstrap"
	"macrodash/internal/export"
	"macrodash/internal/model"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "collector: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "collector",
		Short:         "Fetch the latest macroeconomic indicators once",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./macrodash.yaml)")
	root.AddCommand(newRunCmd())
	return root
}

type runOptions struct {
	out    string
	csvDir string
	json   bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one grounded fetch and print the indicators",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCollector(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.out, "out", "", "write the fetch result as JSON to this path")
	cmd.Flags().StringVar(&opts.csvDir, "csv-dir", "", "write one CSV per indicator into this directory")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the fetch result as JSON instead of a table")
	return cmd
}

func runCollector(ctx context.Context, opts runOptions) error {
	rt, err := bootstrap.Init(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	orchestrator, err := rt.Orchestrator()
	if err != nil {
		return err
	}

	result, err := orchestrator.FetchIndicatorData(ctx)
	if err != nil {
		return err
	}

	if opts.out != "" {
		if err := writeJSON(opts.out, result); err != nil {
			return fmt.Errorf("write %s: %w", opts.out, err)
		}
		rt.Logger.Info("snapshot written", zap.String("path", opts.out))
	}

	if opts.csvDir != "" {
		paths, err := writeCSVs(opts.csvDir, result.Indicators, time.Now())
		if err != nil {
			return err
		}
		rt.Logger.Info("csv files written", zap.String("dir", opts.csvDir), zap.Int("files", len(paths)))
	}

	if opts.json {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	printResult(os.Stdout, result)
	return nil
}

func writeJSON(path string, value any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeCSVs(dir string, indicators []model.Indicator, at time.Time) ([]string, error) {
	paths := make([]string, 0, len(indicators))
	for _, indicator := range indicators {
		path, err := export.WriteFile(dir, indicator, at)
		if err != nil {
			return paths, fmt.Errorf("write csv for %s: %w", indicator.ID, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
