package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/nutrisafe"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
	chiTransport "github.com/kailas-cloud/nutrisafe/internal/transport/chi"
	"github.com/kailas-cloud/nutrisafe/internal/usecase/evaluation"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		scenarios   string
		gatePath    string
		pin         string
		parallelism int
		out         string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenario corpus and apply the release gate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gate := evaluation.DefaultGate()
			if gatePath != "" {
				var err error
				if gate, err = loadGate(gatePath); err != nil {
					return err
				}
			}
			corpus, err := evaluation.LoadDir(scenarios)
			if err != nil {
				return err
			}
			engine, err := nutrisafe.New(nutrisafe.WithBundleFile(g.kbPath), nutrisafe.WithLogger(g.logger()))
			if err != nil {
				return err
			}

			var opts []evaluation.Option
			if pin != "" {
				opts = append(opts, evaluation.WithKBVersion(pin))
			}
			if parallelism > 0 {
				opts = append(opts, evaluation.WithParallelism(parallelism))
			}
			report := evaluation.Run(cmd.Context(), corpus, engine, opts...)
			decision := gate.Evaluate(report)

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(filepath.Clean(out))
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := writeJSON(w, struct {
				Report   evaluation.Report   `json:"report"`
				Decision evaluation.Decision `json:"decision"`
			}{report, decision}); err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "kb %s: %d/%d scenarios passed, accuracy %.4f, %d false negatives, FP rate %.4f\n",
				report.KBVersion, report.ScenariosPass, report.Scenarios,
				report.Accuracy, report.FalseNegatives, report.FalsePositiveRate)
			if !decision.Passed {
				for _, r := range decision.Reasons {
					fmt.Fprintln(errOut, "FAIL:", r)
				}
				return errGateFailed
			}
			fmt.Fprintln(errOut, "PASS")
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarios, "scenarios", "testdata/scenarios", "directory of scenario corpus files")
	cmd.Flags().StringVar(&gatePath, "gate", "", "gate thresholds (yaml); defaults to the built-in gate")
	cmd.Flags().StringVar(&pin, "kb-version", "", "pin every scenario to this knowledge base version")
	cmd.Flags().IntVar(&parallelism, "parallel", 0, "scenarios evaluated at once (default GOMAXPROCS)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to a file instead of stdout")
	return cmd
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	var scenarios string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the knowledge base bundle and, optionally, the scenario corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(filepath.Clean(g.kbPath))
			if err != nil {
				return fmt.Errorf("read bundle: %w", err)
			}
			b, err := kb.Decode(data, kb.FormatFromName(g.kbPath))
			if err != nil {
				return err
			}
			snap, err := kb.Build(b)
			if err != nil {
				return err
			}
			summary := struct {
				Version   string   `json:"version"`
				Checksum  string   `json:"checksum"`
				Stats     kb.Stats `json:"stats"`
				Scenarios int      `json:"scenarios,omitempty"`
			}{Version: snap.Version(), Checksum: snap.Checksum(), Stats: snap.Stats()}

			if scenarios != "" {
				corpus, err := evaluation.LoadDir(scenarios)
				if err != nil {
					return err
				}
				summary.Scenarios = len(corpus)
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&scenarios, "scenarios", "", "also validate the scenario corpus in this directory")
	return cmd
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	var queryPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate one query (yaml or json) and print the verdict",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			if queryPath == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(filepath.Clean(queryPath))
			}
			if err != nil {
				return fmt.Errorf("read query: %w", err)
			}
			// JSON is a subset of YAML.
			var q nutrisafe.Query
			if err := yaml.Unmarshal(data, &q); err != nil {
				return fmt.Errorf("parse query: %w", err)
			}

			engine, err := nutrisafe.New(nutrisafe.WithBundleFile(g.kbPath), nutrisafe.WithLogger(g.logger()))
			if err != nil {
				return err
			}
			v := engine.Check(cmd.Context(), q)
			return writeJSON(cmd.OutOrStdout(), chiTransport.NewVerdictResponse(v))
		},
	}
	cmd.Flags().StringVarP(&queryPath, "query", "q", "-", "query file, - for stdin")
	return cmd
}

func loadGate(path string) (evaluation.Gate, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return evaluation.Gate{}, fmt.Errorf("read gate: %w", err)
	}
	gate := evaluation.DefaultGate()
	if err := yaml.Unmarshal(data, &gate); err != nil {
		return evaluation.Gate{}, fmt.Errorf("parse gate: %w", err)
	}
	return gate, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
