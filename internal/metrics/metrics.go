// Package metrics provides Prometheus metrics for notebook imports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cell outcomes recorded by CellsTotal.
const (
	CellExecuted  = "executed"
	CellDirective = "directive"
	CellNoImport  = "noimport"
	CellFailed    = "failed"
)

// Collector holds the notebook import metrics. A nil *Collector records nothing.
type Collector struct {
	// Finder metrics
	LookupsTotal *prometheus.CounterVec

	// Load metrics
	LoadsTotal   *prometheus.CounterVec
	LoadDuration prometheus.Histogram

	// Cell metrics
	CellsTotal *prometheus.CounterVec
}

// New creates a collector registered with the default Prometheus registerer.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	c := &Collector{
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nbimport",
				Name:      "lookups_total",
				Help:      "Total number of module name lookups by result",
			},
			[]string{"result"},
		),
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nbimport",
				Name:      "loads_total",
				Help:      "Total number of notebook loads by result",
			},
			[]string{"result"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nbimport",
				Name:      "load_duration_seconds",
				Help:      "Time spent reading and executing a notebook",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		CellsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nbimport",
				Name:      "cells_total",
				Help:      "Total number of code cells by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(c.LookupsTotal, c.LoadsTotal, c.LoadDuration, c.CellsTotal)
	}
	return c
}

// RecordLookup counts a finder lookup. matched is false for names with no readable document.
func (c *Collector) RecordLookup(matched bool) {
	if c == nil {
		return
	}
	result := "miss"
	if matched {
		result = "match"
	}
	c.LookupsTotal.WithLabelValues(result).Inc()
}

// RecordLoad counts a finished load and observes its duration.
func (c *Collector) RecordLoad(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.LoadsTotal.WithLabelValues(result).Inc()
	c.LoadDuration.Observe(elapsed.Seconds())
}

// RecordCell counts one code cell outcome.
func (c *Collector) RecordCell(outcome string) {
	if c == nil {
		return
	}
	c.CellsTotal.WithLabelValues(outcome).Inc()
}
