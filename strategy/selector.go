// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/scigolib/gridextract/internal/utils"
	"github.com/scigolib/gridextract/mapping"
)

// Selector picks a read strategy for a mapper.
//
// The choice is driven by the mapper's Stats and by how expensive a single
// range read is on the data source:
//
//   - A dense bounding box (little waste) is read in one request.
//   - On sources where each request is expensive, the bounding box is
//     preferred as long as it fits in the cell budget.
//   - On cheap sources, single-cell reads avoid fetching unused cells.
//   - Otherwise one read per row bounds both request count and waste.
//
// Usage:
//
//	sel := strategy.NewSelector(
//	    strategy.WithSourceCost(strategy.CostHigh),
//	    strategy.WithMaxBufferCells(1<<22),
//	)
//	d := sel.Select(mapper.Stats())
//	fmt.Println(d.Kind, d.Reason)
//
// Selector holds no mutable state and is safe for concurrent use.
type Selector struct {
	cost           SourceCost
	maxBufferCells int
	wasteRatio     float64
	allowed        []Kind
	now            func() time.Time
}

// SourceCost classifies the per-request overhead of a data source.
type SourceCost int

// Source costs.
const (
	// CostLow means requests are cheap: local, uncompressed, no chunking.
	CostLow SourceCost = iota
	// CostMedium is the default.
	CostMedium
	// CostHigh means each request is expensive: remote or compressed chunks.
	CostHigh
)

// String returns the cost name.
func (c SourceCost) String() string {
	switch c {
	case CostLow:
		return "low"
	case CostMedium:
		return "medium"
	case CostHigh:
		return "high"
	default:
		return fmt.Sprintf("SourceCost(%d)", int(c))
	}
}

// ParseSourceCost parses "low", "medium" or "high".
func ParseSourceCost(s string) (SourceCost, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return CostLow, nil
	case "", "medium":
		return CostMedium, nil
	case "high":
		return CostHigh, nil
	default:
		return CostMedium, fmt.Errorf("unknown source cost %q", s)
	}
}

// Selector defaults.
const (
	DefaultMaxBufferCells = 1 << 24
	DefaultWasteRatio     = 4.0
)

// Decision is the outcome of a selection.
type Decision struct {
	// Kind is the selected strategy.
	Kind Kind

	// Reason explains the choice in one line.
	Reason string

	// Factors holds the inputs the rules looked at, keyed by name.
	// Reads are the number of source requests each kind would issue,
	// cells the number of source cells each would fetch.
	Factors map[string]float64

	// Timestamp is when the decision was made.
	Timestamp time.Time
}

// String returns a human-readable representation of the decision.
func (d Decision) String() string {
	return fmt.Sprintf("Decision{Kind: %s, Reason: %s}", d.Kind, d.Reason)
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithSourceCost sets the per-request cost class of the source.
func WithSourceCost(c SourceCost) SelectorOption {
	return func(s *Selector) {
		s.cost = c
	}
}

// WithMaxBufferCells caps the cells a single read may fetch.
// Values < 1 are ignored.
func WithMaxBufferCells(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.maxBufferCells = n
		}
	}
}

// WithWasteRatio sets the largest bounding-box-to-used-cells ratio at
// which a bounding box read is still taken on medium and low cost sources.
// Values < 1 are ignored.
func WithWasteRatio(r float64) SelectorOption {
	return func(s *Selector) {
		if r >= 1 {
			s.wasteRatio = r
		}
	}
}

// WithAllowedKinds restricts the kinds the selector may return.
// No kinds means all are allowed.
func WithAllowedKinds(kinds ...Kind) SelectorOption {
	return func(s *Selector) {
		s.allowed = append([]Kind(nil), kinds...)
	}
}

// WithSelectorClock sets the time source used for Decision.Timestamp.
func WithSelectorClock(now func() time.Time) SelectorOption {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSelector returns a selector with the given options applied over
// CostMedium, DefaultMaxBufferCells and DefaultWasteRatio.
func NewSelector(options ...SelectorOption) *Selector {
	s := &Selector{
		cost:           CostMedium,
		maxBufferCells: min(DefaultMaxBufferCells, utils.MaxBufferCells),
		wasteRatio:     DefaultWasteRatio,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// IsAllowed reports whether kind may be selected.
func (s *Selector) IsAllowed(kind Kind) bool {
	if len(s.allowed) == 0 {
		return true
	}
	for _, k := range s.allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// Select picks a strategy for a mapper with the given stats.
//
// Rules, checked in order:
//
//  1. Empty mapping → pixel (nothing is read).
//  2. Bounding box within budget and (high cost or waste ≤ ratio) → bbox.
//  3. Low cost → pixel.
//  4. Widest row within budget → scanline.
//  5. Otherwise → pixel.
//
// A rule whose kind is not allowed is skipped. When no rule matches an
// allowed kind, the first allowed kind is returned.
func (s *Selector) Select(st mapping.Stats) Decision {
	factors := s.factors(st)
	d := s.apply(st, factors)
	d.Factors = factors
	d.Timestamp = s.now()
	tracer().Debugf("selected %s: %s", d.Kind, d.Reason)
	return d
}

func (s *Selector) apply(st mapping.Stats, f map[string]float64) Decision {
	if st.Pairs == 0 && s.IsAllowed(KindPixel) {
		return Decision{Kind: KindPixel, Reason: "empty mapping - no reads issued"}
	}

	waste := f["waste_ratio"]
	bboxFits := st.BoundingBoxSize <= s.maxBufferCells
	if bboxFits && s.IsAllowed(KindBoundingBox) {
		if s.cost == CostHigh {
			return Decision{
				Kind:   KindBoundingBox,
				Reason: fmt.Sprintf("expensive requests, bounding box of %s fits budget - single read", formatCells(st.BoundingBoxSize)),
			}
		}
		if waste <= s.wasteRatio {
			return Decision{
				Kind:   KindBoundingBox,
				Reason: fmt.Sprintf("dense bounding box (waste %.2f ≤ %.2f) - single read", waste, s.wasteRatio),
			}
		}
	}

	if s.cost == CostLow && s.IsAllowed(KindPixel) {
		return Decision{
			Kind:   KindPixel,
			Reason: fmt.Sprintf("cheap requests - %d single-cell reads, no unused cells", st.UniquePairs),
		}
	}

	if st.MaxRowSpan <= s.maxBufferCells && s.IsAllowed(KindScanline) {
		return Decision{
			Kind:   KindScanline,
			Reason: fmt.Sprintf("sparse bounding box (waste %.2f) - %d row reads fetching %s", waste, st.Rows, formatCells(st.RowSpanCells)),
		}
	}

	if s.IsAllowed(KindPixel) {
		return Decision{
			Kind:   KindPixel,
			Reason: fmt.Sprintf("rows up to %s exceed budget of %s - single-cell reads", formatCells(st.MaxRowSpan), formatCells(s.maxBufferCells)),
		}
	}

	k := s.allowed[0]
	return Decision{Kind: k, Reason: fmt.Sprintf("no rule matched an allowed kind - falling back to %s", k)}
}

func (s *Selector) factors(st mapping.Stats) map[string]float64 {
	waste := math.Inf(1)
	if st.UniquePairs > 0 {
		waste = float64(st.BoundingBoxSize) / float64(st.UniquePairs)
	}
	return map[string]float64{
		"waste_ratio":    waste,
		"reads_pixel":    float64(st.UniquePairs),
		"reads_bbox":     boolToFloat(st.Pairs > 0),
		"reads_scanline": float64(st.Rows),
		"cells_pixel":    float64(st.UniquePairs),
		"cells_bbox":     float64(st.BoundingBoxSize),
		"cells_scanline": float64(st.RowSpanCells),
		"max_row_span":   float64(st.MaxRowSpan),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// formatCells formats a cell count in human-readable form.
func formatCells(n int) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d cells", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c cells", float64(n)/float64(div), "kMGTPE"[exp])
}
