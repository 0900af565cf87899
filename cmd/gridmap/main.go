// Package main provides a command-line utility to map a target grid onto
// a gridded variable and report what a read would cost.
// It prints mapper statistics, the strategy decision and a summary of the
// extracted field.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/scigolib/gridextract"
	"github.com/scigolib/gridextract/grid"
	"github.com/scigolib/gridextract/source"
	"github.com/scigolib/gridextract/strategy"
)

func main() {
	srcBox := flag.String("src", "-180,-90,180,90", "Source grid bounds minx,miny,maxx,maxy")
	srcSize := flag.String("src-size", "360,180", "Source grid size width,height")
	dstBox := flag.String("dst", "-10,35,30,60", "Target grid bounds minx,miny,maxx,maxy")
	dstSize := flag.String("dst-size", "200,125", "Target grid size width,height")
	variable := flag.String("var", "", "Variable (dataset or array name) to read")
	format := flag.String("format", "hdf5", "Source format: hdf5 or zarr")
	kind := flag.String("strategy", "auto", "Read strategy: pixel, bbox, scanline or auto")
	cost := flag.String("cost", "medium", "Source cost for auto: low, medium or high")
	config := flag.String("config", "", "YAML read policy (overrides -strategy and -cost)")
	ti := flag.Int("t", 0, "Time index")
	zi := flag.Int("z", 0, "Vertical index")
	statsOnly := flag.Bool("stats", false, "Print mapper statistics without reading")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || *variable == "" {
		fmt.Println("Usage: gridmap [flags] -var <name> <file.h5 | zarr-dir>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	src, err := regularGrid(*srcBox, *srcSize)
	if err != nil {
		log.Fatalf("Invalid source grid: %v", err)
	}
	dst, err := regularGrid(*dstBox, *dstSize)
	if err != nil {
		log.Fatalf("Invalid target grid: %v", err)
	}

	var opener source.Opener
	switch *format {
	case "hdf5":
		opener = source.HDF5Opener(args[0])
	case "zarr":
		store, err := source.NewLocalStore(args[0])
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		opener = source.ChunkStoreOpener(store)
	default:
		log.Fatalf("Unknown format: %s", *format)
	}

	opts := []gridextract.Option{
		gridextract.WithTimeAxis(*ti + 1),
		gridextract.WithVerticalAxis(*zi + 1),
	}
	if *config != "" {
		cfg, err := gridextract.LoadConfig(*config)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		opts = append(opts, gridextract.WithConfig(cfg))
	} else {
		opt, err := strategyOption(*kind, *cost)
		if err != nil {
			log.Fatalf("Invalid strategy: %v", err)
		}
		opts = append(opts, opt)
	}
	metrics := strategy.NewMetrics()
	opts = append(opts, gridextract.WithMetrics(metrics))

	ds, err := gridextract.Open(opener, src, opts...)
	if err != nil {
		log.Fatalf("Failed to open dataset: %v", err)
	}

	m, err := ds.Mapper(dst)
	if err != nil {
		log.Fatalf("Failed to build mapper: %v", err)
	}
	st := m.Stats()
	fmt.Printf("Source grid:  %dx%d\n", src.Width(), src.Height())
	fmt.Printf("Target grid:  %dx%d (%d cells)\n", dst.Width(), dst.Height(), st.TargetSize)
	fmt.Printf("Pairs:        %d (%d unique source cells, %d rows)\n", st.Pairs, st.UniquePairs, st.Rows)
	fmt.Printf("Bounding box: %d cells (i %d..%d, j %d..%d)\n", st.BoundingBoxSize, m.MinI(), m.MaxI(), m.MinJ(), m.MaxJ())
	fmt.Printf("Row spans:    %d cells, widest %d\n", st.RowSpanCells, st.MaxRowSpan)
	fmt.Printf("Mapper size:  %d bytes\n", st.CompactBytes)

	s, decision, err := ds.Strategy(m)
	if err != nil {
		log.Fatalf("Failed to pick strategy: %v", err)
	}
	if decision != nil {
		fmt.Printf("Strategy:     %s (%s)\n", decision.Kind, decision.Reason)
	} else {
		fmt.Printf("Strategy:     %s\n", s.Kind())
	}
	if *statsOnly {
		return
	}

	out, err := ds.ReadGrid(*variable, *ti, *zi, dst)
	if err != nil {
		log.Fatalf("Read failed: %v", err)
	}

	var valid []float64
	for _, v := range out.Data() {
		if !out.IsMissing(v) && !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	fmt.Printf("Valid cells:  %d of %d\n", len(valid), len(out.Data()))
	if len(valid) > 0 {
		fmt.Printf("Range:        %g .. %g, mean %g\n",
			floats.Min(valid), floats.Max(valid), floats.Sum(valid)/float64(len(valid)))
	}
	fmt.Print(metrics.String())
}

func strategyOption(kind, cost string) (gridextract.Option, error) {
	if strings.EqualFold(kind, gridextract.StrategyAuto) {
		c, err := strategy.ParseSourceCost(cost)
		if err != nil {
			return nil, err
		}
		return gridextract.WithAutoStrategy(strategy.NewSelector(strategy.WithSourceCost(c))), nil
	}
	k, err := strategy.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return gridextract.WithStrategy(k), nil
}

func regularGrid(box, size string) (*grid.RectilinearGrid, error) {
	b, err := parseFloats(box, 4)
	if err != nil {
		return nil, fmt.Errorf("bounds %q: %w", box, err)
	}
	s, err := parseFloats(size, 2)
	if err != nil {
		return nil, fmt.Errorf("size %q: %w", size, err)
	}
	return grid.NewRegular(grid.BBox{MinX: b[0], MinY: b[1], MaxX: b[2], MaxY: b[3]}, int(s[0]), int(s[1]), nil)
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
