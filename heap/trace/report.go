package trace

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary aggregates a set of results, weighting utilization by trace weight.
type Summary struct {
	Traces      int     `json:"traces"`
	Ops         int     `json:"ops"`
	Seconds     float64 `json:"seconds"`
	Utilization float64 `json:"utilization"`
	Throughput  float64 `json:"throughput"`
}

// Summarize totals results.
func Summarize(results []Result) Summary {
	var s Summary
	weights := 0
	for _, r := range results {
		w := max(r.Weight, 1)
		s.Traces++
		s.Ops += r.Ops
		s.Seconds += r.Elapsed.Seconds()
		s.Utilization += float64(w) * r.Utilization()
		weights += w
	}
	if weights > 0 {
		s.Utilization /= float64(weights)
	}
	if s.Seconds > 0 {
		s.Throughput = float64(s.Ops) / s.Seconds
	}
	return s
}

// WriteReport renders a per-trace table and a summary line with grouped
// digits (English locale).
func WriteReport(w io.Writer, results []Result) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "%-24s %10s %12s %10s %12s %6s\n",
		"trace", "ops", "heap", "secs", "ops/sec", "util"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := p.Fprintf(w, "%-24s %10d %12d %10.6f %12.0f %5.1f%%\n",
			r.Name, r.Ops, r.HeapSize, r.Elapsed.Seconds(), r.Throughput(), 100*r.Utilization()); err != nil {
			return err
		}
	}

	s := Summarize(results)
	_, err := p.Fprintf(w, "%-24s %10d %12s %10.6f %12.0f %5.1f%%\n",
		"total", s.Ops, "", s.Seconds, s.Throughput, 100*s.Utilization)
	return err
}
