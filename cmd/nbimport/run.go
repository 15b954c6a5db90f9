package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kingrea/nbimport/internal/bootstrap"
	"github.com/kingrea/nbimport/internal/loader"
	"github.com/kingrea/nbimport/internal/metrics"
	"github.com/kingrea/nbimport/internal/runtime"
	"github.com/kingrea/nbimport/internal/session"
)

var (
	runWithSession bool
	runShowMetrics bool

	runCmd = &cobra.Command{
		Use:   "run <module>",
		Short: "Import a notebook and list the names it binds",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
)

func init() {
	runCmd.Flags().BoolVar(&runWithSession, "session", false, "label cells through an interactive session history")
	runCmd.Flags().BoolVar(&runShowMetrics, "metrics", false, "print import metrics after the run")
}

func runImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reg := prometheus.NewRegistry()
	env, err := loadEnvironment(cmd.ErrOrStderr(), metrics.NewWithRegistry(reg))
	if err != nil {
		return err
	}
	defer env.Close()

	if runWithSession {
		h := session.Start()
		defer h.Close()
		env.logger.Debug("session started", "id", h.ID())
	}

	rt := runtime.New(runtime.WithNamespaceOptions(runtime.NamespaceOptions{Stdout: out, Stderr: cmd.ErrOrStderr()}))
	bootstrap.Install(rt, env.finderOptions()...)

	name := args[0]
	m, importErr := rt.Import(name)
	if m != nil {
		printModule(out, m)
	}
	if runShowMetrics {
		printMetrics(out, reg)
	}
	if importErr != nil {
		var cellErr *loader.CellError
		if errors.As(importErr, &cellErr) {
			fmt.Fprintln(out, errorStyle.Render("failed at "+cellErr.Label)+" "+mutedStyle.Render("("+string(cellErr.Stage)+")"))
			fmt.Fprintln(out, "  "+cellErr.Err.Error())
			return &exitError{code: 1, err: importErr}
		}
		return importErr
	}
	return nil
}

func printModule(out io.Writer, m *runtime.Module) {
	state := successStyle.Render(string(m.State()))
	if m.State() == runtime.StateFailed {
		state = errorStyle.Render(string(m.State()))
	}
	fmt.Fprintf(out, "%s %s %s\n", titleStyle.Render(m.Name), state, mutedStyle.Render(m.Origin()))
	fmt.Fprintf(out, "%s %d\n", mutedStyle.Render("cells executed:"), m.Executed())
	names := m.Namespace.Names()
	if len(names) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  (no bindings)"))
		return
	}
	for _, name := range names {
		value := "?"
		if v, ok := m.Namespace.Lookup(name); ok && v.CanInterface() {
			value = fmt.Sprintf("%v", v.Interface())
		}
		fmt.Fprintf(out, "  %s = %s\n", name, value)
	}
}

func printMetrics(out io.Writer, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintln(out, warningStyle.Render("metrics unavailable: "+err.Error()))
		return
	}
	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			var labels []string
			for _, pair := range metric.GetLabel() {
				labels = append(labels, pair.GetName()+"="+pair.GetValue())
			}
			value := metric.GetCounter().GetValue()
			if h := metric.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			lines = append(lines, fmt.Sprintf("  %s{%s} %g", family.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)
	fmt.Fprintln(out, titleStyle.Render("metrics"))
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
