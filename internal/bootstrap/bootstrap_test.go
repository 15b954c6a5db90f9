package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kingrea/nbimport/internal/loader"
	"github.com/kingrea/nbimport/internal/runtime"
)

const counterNotebook = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {},
 "cells": [
  {"cell_type": "code", "metadata": {}, "source": ["hits := 1\n"], "outputs": [], "execution_count": null}
 ]
}`

func TestInstallIsIdempotent(t *testing.T) {
	rt := runtime.New()
	if !Install(rt) {
		t.Fatalf("first install should append")
	}
	if Install(rt) {
		t.Fatalf("second install should be a no-op")
	}
	if rt.Chain().Len() != 1 {
		t.Fatalf("expected exactly one finder, got %d", rt.Chain().Len())
	}
}

func TestInstallAppendsAfterExistingFinders(t *testing.T) {
	rt := runtime.New()
	ordinary := runtime.FinderFunc(func(string, []string) (*runtime.Spec, error) { return nil, nil })
	rt.Chain().Append(ordinary)
	Install(rt)
	finders := rt.Chain().Finders()
	if len(finders) != 2 {
		t.Fatalf("expected two finders, got %d", len(finders))
	}
	if !Installed(finders[1]) || Installed(finders[0]) {
		t.Fatalf("notebook finder must be appended last")
	}
}

func TestDuplicateFindersLoadOnce(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "counter.ipynb"), []byte(counterNotebook), 0o644); err != nil {
		t.Fatalf("write notebook: %v", err)
	}
	rt := runtime.New()
	// Bypass the guard to show duplicates stay harmless: the first match wins.
	rt.Chain().Append(loader.New(loader.WithDir(dir)))
	rt.Chain().Append(loader.New(loader.WithDir(dir)))

	m, err := rt.Import("counter")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if m.Executed() != 1 {
		t.Fatalf("expected one executed cell, got %d", m.Executed())
	}
	again, err := rt.Import("counter")
	if err != nil || again != m {
		t.Fatalf("second import should hit the registry")
	}
}

func TestInitInstallsIntoDefault(t *testing.T) {
	Init()
	Init()
	if got := Default().Chain().Len(); got != 1 {
		t.Fatalf("expected one finder in the default runtime, got %d", got)
	}
	if err := InitWorker(runtime.New()); err != nil {
		t.Fatalf("init worker: %v", err)
	}
}
