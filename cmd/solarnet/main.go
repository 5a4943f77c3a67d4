// Package main provides the solarnet CLI for inspecting class bundles.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MartianZoo/solarnet-sub002/internal/bundle"
	"github.com/MartianZoo/solarnet-sub002/internal/types"
)

// Version is the current solarnet CLI version
var Version = "0.3.0"

type options struct {
	bundleDir string
	patterns  []string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "solarnet",
		Short:         "Inspect Pets class bundles and the types they declare",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.bundleDir, "bundle", "b", ".", "Directory holding the class bundle")
	root.PersistentFlags().StringArrayVar(&opts.patterns, "pattern", []string{bundle.DefaultPattern}, "Glob selecting bundle files")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newCheckCmd(opts),
		newDescCmd(opts),
		newSubtypesCmd(opts),
		newHierarchyCmd(opts),
		newDiffCmd(opts),
		newExportCmd(opts),
		newLintCmd(opts),
		newFmtCmd(opts),
	)
	return root
}

func (o *options) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// load reads the bundle in dir and builds a frozen class table from it
func (o *options) load(cmd *cobra.Command, dir string) (*bundle.Bundle, *types.Loader, error) {
	logger := o.logger(cmd.ErrOrStderr())
	b, err := bundle.Load(os.DirFS(dir), logger, o.patterns...)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range b.Diagnostics.All() {
		fmt.Fprintln(cmd.ErrOrStderr(), w.String())
	}
	loader, err := types.NewLoader(b, types.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	if err := loader.LoadEverything(); err != nil {
		return nil, nil, err
	}
	return b, loader, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
