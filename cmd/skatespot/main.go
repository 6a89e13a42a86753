package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skatespot-service/internal/config"
	"skatespot-service/internal/evaluator"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "skatespot",
		Short:         "Skate spot evaluation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./config.yaml or /etc/skatespot/config.yaml)")

	rootCmd.AddCommand(serveCommand(&configPath), evaluateCommand())
	return rootCmd
}

// buildEvaluator applies the optional rubric override and daylight setting.
func buildEvaluator(cfg config.EvaluationConfig) (*evaluator.Evaluator, error) {
	opts := []evaluator.Option{evaluator.WithDaylightOverride(cfg.DaylightOverride)}
	if cfg.RubricFile != "" {
		rubric, err := evaluator.LoadRubricFile(cfg.RubricFile)
		if err != nil {
			return nil, fmt.Errorf("load rubric: %w", err)
		}
		opts = append(opts, evaluator.WithRubric(rubric))
	}
	return evaluator.New(opts...), nil
}
