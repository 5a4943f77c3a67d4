package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/MartianZoo/solarnet-sub002/internal/bundle"
	"github.com/MartianZoo/solarnet-sub002/internal/formatter"
	"github.com/MartianZoo/solarnet-sub002/internal/linter"
	"github.com/MartianZoo/solarnet-sub002/internal/parser"
	"github.com/MartianZoo/solarnet-sub002/internal/types"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every class in the bundle and report unusable ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, loader, err := opts.load(cmd, opts.bundleDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range loader.Problems() {
				fmt.Fprintln(out, p)
			}
			fmt.Fprintf(out, "%d classes from %d files, fingerprint %s\n",
				len(loader.AllClasses()), len(b.Files), b.Fingerprint[:12])
			if n := len(loader.Problems()); n > 0 {
				return fmt.Errorf("%d unusable classes", n)
			}
			return nil
		},
	}
}

func newDescCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "desc <expression>",
		Short: "Describe the type an expression denotes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loader, err := opts.load(cmd, opts.bundleDir)
			if err != nil {
				return err
			}
			typ, err := resolve(loader, args[0])
			if err != nil {
				return err
			}
			d, err := types.Describe(typ)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), d.Format())
			return nil
		},
	}
}

func newSubtypesCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "subtypes <expression>",
		Short: "List the concrete types an expression denotes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loader, err := opts.load(cmd, opts.bundleDir)
			if err != nil {
				return err
			}
			typ, err := resolve(loader, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			n := 0
			for sub := range typ.AllConcreteSubtypes() {
				if limit > 0 && n == limit {
					fmt.Fprintf(out, "(stopped after %d)\n", limit)
					break
				}
				fmt.Fprintln(out, sub.ExpressionFull())
				n++
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Stop after this many types (0 for no limit)")
	return cmd
}

func newHierarchyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy [class]",
		Short: "Print the class tree below a class, Component by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loader, err := opts.load(cmd, opts.bundleDir)
			if err != nil {
				return err
			}
			top := loader.Component()
			if len(args) == 1 {
				top, err = loadClass(loader, args[0])
				if err != nil {
					return err
				}
			}
			writeHierarchy(cmd.OutOrStdout(), top, 0)
			return nil
		},
	}
}

func newDiffCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <other-bundle>",
		Short: "Show how another bundle's class tree differs from this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, before, err := opts.load(cmd, opts.bundleDir)
			if err != nil {
				return err
			}
			_, after, err := opts.load(cmd, args[0])
			if err != nil {
				return err
			}
			text, err := diffHierarchies(opts.bundleDir, before, args[0], after)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the bundle as a single YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, _, err := opts.load(cmd, opts.bundleDir)
			if err != nil {
				return err
			}
			data, err := bundle.EncodeYAML(name, b.Declarations())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name recorded in the exported document")
	return cmd
}

func newLintCmd(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report style problems in the bundle's classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, loader, err := opts.load(cmd, opts.bundleDir)
			if err != nil {
				return err
			}
			warnings := linter.Lint(loader).All()
			out := cmd.OutOrStdout()
			for _, w := range warnings {
				fmt.Fprintln(out, w.String())
			}
			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d lint warnings", len(warnings))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when there are warnings")
	return cmd
}

func newFmtCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt",
		Short: "Print the bundle as canonical Pets source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := bundle.Load(os.DirFS(opts.bundleDir), opts.logger(cmd.ErrOrStderr()), opts.patterns...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.Format(b.Declarations()))
			return nil
		},
	}
}

func resolve(loader *types.Loader, text string) (*types.Type, error) {
	expr, err := parser.ParseExpression(text)
	if err != nil {
		return nil, err
	}
	return loader.Resolve(expr)
}

func loadClass(loader *types.Loader, text string) (*types.Class, error) {
	expr, err := parser.ParseExpression(text)
	if err != nil {
		return nil, err
	}
	if !expr.Simple() {
		return nil, fmt.Errorf("expected a class name, got %s", expr)
	}
	return loader.Load(expr.ClassName)
}

// writeHierarchy prints c and, indented below it, every class that names it as
// a direct superclass. A class with several superclasses appears under each.
func writeHierarchy(w io.Writer, c *types.Class, depth int) {
	line := strings.Repeat("  ", depth) + string(c.ClassName())
	if c.Abstract() {
		line += " (abstract)"
	}
	if c.IntersectionType() {
		line += " (intersection)"
	}
	fmt.Fprintln(w, line)
	for _, sub := range c.DirectSubclasses() {
		writeHierarchy(w, sub, depth+1)
	}
}

func diffHierarchies(beforeName string, before *types.Loader, afterName string, after *types.Loader) (string, error) {
	var a, b strings.Builder
	writeHierarchy(&a, before.Component(), 0)
	writeHierarchy(&b, after.Component(), 0)
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.String()),
		B:        difflib.SplitLines(b.String()),
		FromFile: beforeName,
		ToFile:   afterName,
		Context:  3,
	})
}
