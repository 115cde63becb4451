// Command colainfo prints overlap-add properties of window/hop pairs.
//
// Usage:
//
//	colainfo [flags] [window-name ...]
//
// Without arguments it prints every known window type, plus the
// square-root Hann analysis/synthesis pair used by the separation engine.
//
// Examples:
//
//	colainfo hann
//	colainfo -size 4096 -hops 0.5,0.25 hann hamming
//	colainfo -list
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-stems/dsp/window"
)

type windowEntry struct {
	name string
	typ  window.Type
	// pair applies the window twice, as analysis and synthesis.
	pair bool
}

var registry = []windowEntry{
	{"rectangular", window.TypeRectangular, false},
	{"hann", window.TypeHann, false},
	{"sqrt-hann", window.TypeSqrtHann, false},
	{"sqrt-hann-pair", window.TypeSqrtHann, true},
	{"hamming", window.TypeHamming, false},
	{"blackman", window.TypeBlackman, false},
	{"tukey", window.TypeTukey, false},
	{"triangle", window.TypeTriangle, false},
}

// colaTolerance is the ripple below which a row is reported as COLA.
const colaTolerance = 1e-9

func main() {
	size := flag.Int("size", 4096, "window length in samples")
	hops := flag.String("hops", "0.5,0.25", "comma-separated hop sizes as fractions of the window length")
	symmetric := flag.Bool("symmetric", false, "use the symmetric form instead of periodic (FFT)")
	alpha := flag.Float64("alpha", 0.5, "Tukey taper ratio in [0,1]")
	list := flag.Bool("list", false, "list available window names")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: colainfo [flags] [window-name ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints constant-overlap-add gain and ripple of window/hop pairs.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *list {
		printList(os.Stdout)
		return
	}

	fractions, err := parseFractions(*hops)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	entries := resolveEntries(flag.Args())
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "error: no matching window types\n")
		os.Exit(1)
	}

	if *alpha < 0 || *alpha > 1 {
		fmt.Fprintf(os.Stderr, "error: alpha must be in [0,1]: %g\n", *alpha)
		os.Exit(2)
	}

	opts := []window.Option{window.WithAlpha(*alpha)}
	if !*symmetric {
		opts = append(opts, window.WithPeriodic())
	}

	if err := printAnalysis(os.Stdout, entries, *size, fractions, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printList(w io.Writer) {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.name
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
}

func parseFractions(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid hop fraction %q: %w", part, err)
		}
		if f <= 0 || f > 1 {
			return nil, fmt.Errorf("hop fraction must be in (0,1]: %g", f)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no hop fractions given")
	}
	return out, nil
}

func resolveEntries(names []string) []windowEntry {
	if len(names) == 0 {
		return registry
	}

	byName := make(map[string]windowEntry, len(registry))
	for _, e := range registry {
		byName[e.name] = e
	}

	var result []windowEntry
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		e, ok := byName[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "warning: unknown window %q (use -list to see available)\n", name)
			continue
		}
		result = append(result, e)
	}
	return result
}

// row is one window/hop result.
type row struct {
	label string
	hop   int
	// enbw is the equivalent noise bandwidth of the effective window, in
	// bins.
	enbw float64
	cola window.COLA
}

func analyze(e windowEntry, size int, fraction float64, opts []window.Option) (row, error) {
	hop := int(float64(size)*fraction + 0.5)
	if hop < 1 {
		hop = 1
	}

	coeffs := window.Generate(e.typ, size, opts...)
	effective := coeffs
	var (
		c   window.COLA
		err error
	)
	if e.pair {
		c, err = window.CheckCOLAPair(coeffs, coeffs, hop)
		effective = make([]float64, size)
		if err == nil {
			err = window.ApplyCoefficients(effective, coeffs, coeffs)
		}
	} else {
		c, err = window.CheckCOLA(coeffs, hop)
	}
	if err != nil {
		return row{}, fmt.Errorf("%s at hop %d: %w", e.name, hop, err)
	}
	enbw, err := window.EquivalentNoiseBandwidth(effective)
	if err != nil {
		return row{}, fmt.Errorf("%s: %w", e.name, err)
	}
	return row{label: e.name, hop: hop, enbw: enbw, cola: c}, nil
}

func printAnalysis(w io.Writer, entries []windowEntry, size int, fractions []float64, opts []window.Option) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Window\tSize\tHop\tENBW\tGain\tMin\tMax\tRipple\tCOLA\n"); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "------\t----\t---\t----\t----\t---\t---\t------\t----\n"); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}

	for _, e := range entries {
		for _, f := range fractions {
			r, err := analyze(e, size, f, opts)
			if err != nil {
				return err
			}
			cola := "no"
			if r.cola.IsCOLA(colaTolerance) {
				cola = "yes"
			}
			if _, err := fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.6f\t%.6f\t%.6f\t%.2e\t%s\n",
				r.label, size, r.hop, r.enbw, r.cola.Gain, r.cola.Min, r.cola.Max, r.cola.Ripple, cola,
			); err != nil {
				return fmt.Errorf("failed to write output row: %w", err)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
