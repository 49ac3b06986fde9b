// Command torus builds parametric fusion reactor models from YAML or Lisp
// descriptions and exports them as STL, 3MF, SVG, DXF or an HTML viewer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/torus/pkg/component"
	"github.com/chazu/torus/pkg/config"
	"github.com/chazu/torus/pkg/export"
	"github.com/chazu/torus/pkg/reactor"
)

var (
	rootCmd = &cobra.Command{
		Use:           "torus",
		Short:         "Parametric fusion reactor CAD",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logLevel  string
	logFormat string
	cutters   bool
	parallel  bool
	workers   int

	outPaths []string
	format   string
	view     string

	showParams bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "torus:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&cutters, "cutters", false, "Include cutter parts in meshes and exports")
	rootCmd.PersistentFlags().BoolVar(&parallel, "parallel", false, "Build independent components concurrently")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Parts tessellated at once (0 = one per CPU)")

	buildCmd.Flags().StringArrayVarP(&outPaths, "out", "o", nil, "Output path, repeatable; replaces the outputs in the file")
	buildCmd.Flags().StringVarP(&format, "format", "f", "", "Export format for --out paths (default: from extension)")
	buildCmd.Flags().StringVar(&view, "view", "", "SVG view direction (side, top, front)")

	kindsCmd.Flags().BoolVar(&showParams, "params", false, "Print the default parameters of each kind")

	rootCmd.AddCommand(buildCmd, checkCmd, evalCmd, convertCmd, kindsCmd)
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(logFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", logFormat)
}

func newApp() (*App, error) {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	return NewApp(
		WithLogger(logger),
		WithCutterMeshes(cutters),
		WithParallelBuild(parallel),
		WithTessellationWorkers(workers),
	), nil
}

// load reads a description and turns evaluation errors into one error.
func load(app *App, path string) (*config.File, EvalResult, error) {
	f, res, err := app.Load(path)
	if err != nil {
		return nil, res, err
	}
	for _, w := range res.Warnings {
		app.logger.Warn("evaluation warning", "file", path, "line", w.Line, "warning", w.Message)
	}
	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			if e.Line > 0 {
				msgs[i] = fmt.Sprintf("%s:%d: %s", path, e.Line, e.Message)
			} else {
				msgs[i] = fmt.Sprintf("%s: %s", path, e.Message)
			}
		}
		return nil, res, errors.New(strings.Join(msgs, "\n"))
	}
	return f, res, nil
}

// targets returns the outputs to write: the --out paths if given,
// otherwise the outputs the description declares.
func targets(f *config.File) ([]config.Output, error) {
	if len(outPaths) == 0 {
		if len(f.Outputs) == 0 {
			return nil, errors.New("no outputs: declare some in the file or pass --out")
		}
		if view == "" {
			return f.Outputs, nil
		}
		outs := append([]config.Output(nil), f.Outputs...)
		for i := range outs {
			outs[i].View = view
		}
		return outs, nil
	}
	outs := make([]config.Output, len(outPaths))
	for i, p := range outPaths {
		outs[i] = config.Output{Path: p, Format: strings.ToLower(format), View: view}
		if _, _, err := outs[i].Target(); err != nil {
			return nil, err
		}
	}
	return outs, nil
}

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Build a reactor and write its outputs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		f, _, err := load(app, args[0])
		if err != nil {
			return err
		}
		outs, err := targets(f)
		if err != nil {
			return err
		}
		asm, err := app.Build(cmd.Context(), f)
		if err != nil {
			return err
		}
		for _, w := range asm.Warnings {
			app.logger.Warn("reactor warning", "reactor", asm.Name, "component", w.Node, "warning", w.Message)
		}
		if err := app.Export(cmd.Context(), asm, outs); err != nil {
			return err
		}
		for _, o := range outs {
			fmt.Fprintln(cmd.OutOrStdout(), o.Path)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Build a reactor without exporting and summarise its parts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		f, _, err := load(app, args[0])
		if err != nil {
			return err
		}
		asm, err := app.Build(cmd.Context(), f)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %d parts, %d cutters\n", asm.Name, len(asm.Parts), len(asm.Cutters))
		fmt.Fprintf(w, "order: %s\n", strings.Join(asm.Order, " "))
		for _, p := range append(append([]reactor.Part(nil), asm.Parts...), asm.Cutters...) {
			role := "part"
			if p.Cutter {
				role = "cutter"
			}
			e := p.Extents
			fmt.Fprintf(w, "%-6s %-20s %-32s r=[%g, %g] h=%g angle=%g\n",
				role, p.Name, p.Kind, e.InnerRadius, e.OuterRadius, e.Height, e.AngularExtent)
		}
		for _, warn := range asm.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn.Error())
		}
		return nil
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval <file>",
	Short: "Build a reactor and print its meshes as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		f, res, err := app.Load(args[0])
		if err != nil {
			return err
		}
		if f != nil {
			more := app.EvaluateFile(cmd.Context(), f)
			more.Warnings = append(res.Warnings, more.Warnings...)
			res = more
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		return enc.Encode(res)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Print a Lisp description as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		f, _, err := load(app, args[0])
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	},
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List component kinds and export formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, kind := range component.Kinds() {
			fmt.Fprintln(w, kind)
			if !showParams {
				continue
			}
			spec, _ := component.Lookup(kind)
			out, err := yaml.Marshal(spec)
			if err != nil {
				return err
			}
			for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
		formats := make([]string, 0, len(export.Formats()))
		for _, f := range export.Formats() {
			formats = append(formats, f.String())
		}
		fmt.Fprintf(w, "\nformats: %s\n", strings.Join(formats, " "))
		return nil
	},
}
