package main

import (
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/autopo-replenish/internal/recommendation"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// evaluateInput is the YAML fixture read by the evaluate command.
type evaluateInput struct {
	Requests []recommendation.EvaluateRequest `yaml:"requests"`
}

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:      "evaluate",
		Usage:     "Evaluate SKUs from a YAML file and print the results as YAML",
		ArgsUsage: "<file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "sqlite",
				Usage:   "SQLite file holding history and plans",
				Value:   ":memory:",
				EnvVars: []string{"REPLENISH_SQLITE_PATH"},
			},
		},
		Action: runEvaluate,
	}
}

func runEvaluate(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("evaluate needs exactly one input file (use - for stdin)", 2)
	}

	reqs, err := readEvaluateInput(c.Args().First())
	if err != nil {
		return err
	}

	cfg := configFrom(c)
	st, err := openStores(c.Context, cfg, c.String("sqlite"))
	if err != nil {
		return err
	}
	defer st.Close()

	plans, err := newPlanService(c.Context, cfg, st.plans)
	if err != nil {
		return err
	}

	results := newRecommendationService(cfg, st, plans).EvaluateBatch(c.Context, reqs)
	return writeYAML(c.App.Writer, map[string]any{"results": results})
}

func readEvaluateInput(path string) ([]recommendation.EvaluateRequest, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	return decodeEvaluateInput(r)
}

func decodeEvaluateInput(r io.Reader) ([]recommendation.EvaluateRequest, error) {
	var in evaluateInput
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	if len(in.Requests) == 0 {
		return nil, fmt.Errorf("input has no requests")
	}
	return in.Requests, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
