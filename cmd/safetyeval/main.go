// Command safetyeval runs the certified scenario corpus against a knowledge
// base bundle and applies the release gate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/nutrisafe/internal/logger"
	"github.com/kailas-cloud/nutrisafe/internal/version"
)

// errGateFailed makes the process exit 1 without printing usage.
var errGateFailed = errors.New("release gate failed")

type globalFlags struct {
	kbPath  string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errGateFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "safetyeval",
		Short:         "Evaluate a nutrisafe knowledge base against certified scenarios",
		Version:       fmt.Sprintf("%s (%s)", version.Version, version.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.kbPath, "kb", "testdata/kb/seed.yaml", "knowledge base bundle (yaml or json)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(newRunCmd(g), newValidateCmd(g), newCheckCmd(g))
	return root
}

func (g *globalFlags) logger() *zap.Logger {
	return logpkg.NewCLILogger(g.verbose)
}
