// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/scigolib/gridextract/array"
	"github.com/scigolib/gridextract/mapping"
	"github.com/scigolib/gridextract/source"
)

// Metrics counts reads and cells per strategy kind.
//
// All methods are safe for concurrent use. Counters are atomic, the set
// of kinds is fixed at construction.
type Metrics struct {
	kinds     map[Kind]*kindCounters
	decisions map[Kind]*atomic.Int64
	startTime atomic.Int64 // unix nanos
}

type kindCounters struct {
	runs         atomic.Int64
	reads        atomic.Int64
	cellsFetched atomic.Int64
	cellsUsed    atomic.Int64
	errors       atomic.Int64
	nanos        atomic.Int64
}

// KindSnapshot holds the counters of one strategy kind.
type KindSnapshot struct {
	Runs         int64         `json:"runs"`
	Reads        int64         `json:"reads"`
	CellsFetched int64         `json:"cells_fetched"`
	CellsUsed    int64         `json:"cells_used"`
	Errors       int64         `json:"errors"`
	TotalTime    time.Duration `json:"total_time_ns"`
}

// Efficiency returns CellsUsed/CellsFetched, or 0 when nothing was fetched.
func (k KindSnapshot) Efficiency() float64 {
	if k.CellsFetched == 0 {
		return 0
	}
	return float64(k.CellsUsed) / float64(k.CellsFetched)
}

// MetricsSnapshot is an immutable copy of the counters.
type MetricsSnapshot struct {
	Kinds        map[Kind]KindSnapshot `json:"kinds"`
	Decisions    map[Kind]int64        `json:"decisions"`
	Uptime       time.Duration         `json:"uptime_ns"`
	SnapshotTime time.Time             `json:"snapshot_time"`
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		kinds:     make(map[Kind]*kindCounters, len(Kinds)),
		decisions: make(map[Kind]*atomic.Int64, len(Kinds)),
	}
	m.startTime.Store(time.Now().UnixNano())
	for _, k := range Kinds {
		m.kinds[k] = &kindCounters{}
		m.decisions[k] = &atomic.Int64{}
	}
	return m
}

// RecordRead counts one source read of cells cells.
func (m *Metrics) RecordRead(kind Kind, cells int) {
	if c, ok := m.kinds[kind]; ok {
		c.reads.Add(1)
		c.cellsFetched.Add(int64(cells))
	}
}

// RecordRun counts one strategy run that placed used source cells.
func (m *Metrics) RecordRun(kind Kind, used int, elapsed time.Duration, err error) {
	c, ok := m.kinds[kind]
	if !ok {
		return
	}
	c.runs.Add(1)
	c.nanos.Add(int64(elapsed))
	if err != nil {
		c.errors.Add(1)
		return
	}
	c.cellsUsed.Add(int64(used))
}

// RecordDecision counts a selector decision.
func (m *Metrics) RecordDecision(d Decision) {
	if c, ok := m.decisions[d.Kind]; ok {
		c.Add(1)
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	now := time.Now()
	s := MetricsSnapshot{
		Kinds:        make(map[Kind]KindSnapshot, len(m.kinds)),
		Decisions:    make(map[Kind]int64, len(m.decisions)),
		Uptime:       now.Sub(time.Unix(0, m.startTime.Load())),
		SnapshotTime: now,
	}
	for k, c := range m.kinds {
		s.Kinds[k] = KindSnapshot{
			Runs:         c.runs.Load(),
			Reads:        c.reads.Load(),
			CellsFetched: c.cellsFetched.Load(),
			CellsUsed:    c.cellsUsed.Load(),
			Errors:       c.errors.Load(),
			TotalTime:    time.Duration(c.nanos.Load()),
		}
	}
	for k, c := range m.decisions {
		s.Decisions[k] = c.Load()
	}
	return s
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	for _, c := range m.kinds {
		c.runs.Store(0)
		c.reads.Store(0)
		c.cellsFetched.Store(0)
		c.cellsUsed.Store(0)
		c.errors.Store(0)
		c.nanos.Store(0)
	}
	for _, c := range m.decisions {
		c.Store(0)
	}
	m.startTime.Store(time.Now().UnixNano())
}

// JSON returns the snapshot encoded as JSON.
func (s MetricsSnapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// String formats the counters one kind per line.
func (m *Metrics) String() string {
	s := m.Snapshot()
	var sb strings.Builder
	sb.WriteString("=== Read Strategy Metrics ===\n")
	fmt.Fprintf(&sb, "Uptime: %v\n", s.Uptime.Round(time.Second))
	for _, k := range Kinds {
		ks := s.Kinds[k]
		fmt.Fprintf(&sb, "%-8s runs=%d reads=%d fetched=%d used=%d efficiency=%.1f%% errors=%d selected=%d\n",
			k, ks.Runs, ks.Reads, ks.CellsFetched, ks.CellsUsed, ks.Efficiency()*100, ks.Errors, s.Decisions[k])
	}
	return sb.String()
}

// Instrument wraps s so that every run and read is recorded in metrics.
// Cells used per run come from the sorted mapper's stored unique count.
func Instrument(s Strategy, metrics *Metrics) Strategy {
	if metrics == nil {
		return s
	}
	return &instrumented{inner: s, metrics: metrics}
}

type instrumented struct {
	inner   Strategy
	metrics *Metrics
}

func (i *instrumented) Kind() Kind { return i.inner.Kind() }

func (i *instrumented) Read(m *mapping.Domain2DMapper, src source.DataSource, req Request, out *array.Array2D) error {
	start := time.Now()
	counted := &countingSource{DataSource: src, kind: i.inner.Kind(), metrics: i.metrics}
	err := i.inner.Read(m, counted, req, out)
	i.metrics.RecordRun(i.inner.Kind(), m.UniquePairCount(), time.Since(start), err)
	return err
}

type countingSource struct {
	source.DataSource
	kind    Kind
	metrics *Metrics
}

func (c *countingSource) Read(variable string, t, z, y, x source.Range) (array.Block, error) {
	b, err := c.DataSource.Read(variable, t, z, y, x)
	if err == nil {
		c.metrics.RecordRead(c.kind, t.Len()*z.Len()*y.Len()*x.Len())
	}
	return b, err
}
