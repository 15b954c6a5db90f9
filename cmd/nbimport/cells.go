package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/nbimport/internal/loader"
	"github.com/kingrea/nbimport/internal/notebook"
)

var cellsCmd = &cobra.Command{
	Use:   "cells <module>",
	Short: "Show which code cells of a notebook would be imported",
	Args:  cobra.ExactArgs(1),
	RunE:  runCells,
}

func runCells(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd.ErrOrStderr(), nil)
	if err != nil {
		return err
	}
	defer env.Close()

	f := loader.New(env.finderOptions()...)
	path := f.PathFor(args[0])
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	nb, err := notebook.Read(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(path)+mutedStyle.Render(fmt.Sprintf(" nbformat %d.%d", nb.Format, nb.FormatMinor)))
	plan := f.Plan(nb, path)
	if len(plan) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  (no code cells)"))
		return nil
	}
	for _, cell := range plan {
		status := successStyle.Render("run")
		if !cell.Runnable() {
			status = warningStyle.Render("skip:" + string(cell.Skip))
		}
		fmt.Fprintln(out, indexStyle.Render(fmt.Sprintf("%d", cell.Index))+statusStyle.Render(status)+" "+firstLine(cell.Source))
	}
	return nil
}

func firstLine(src string) string {
	line, rest, _ := strings.Cut(strings.TrimSpace(src), "\n")
	if rest != "" {
		line += " …"
	}
	return line
}
