// Package inventory converts the extracted bug report text blobs into typed
// per-cluster node and per-namespace resource inventories. Parsing is best
// effort throughout: these feed cost estimates over heterogeneous,
// occasionally malformed cluster dumps, so one bad value or document must
// never abort a whole report.
package inventory

import (
	"math"
	"strconv"
	"strings"
)

// ParseCPUCores converts a Kubernetes CPU quantity to cores. Suffix m is
// milli, n is nano; anything else is a plain decimal number of cores.
// Unparseable or absent input yields 0, never an error.
func ParseCPUCores(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	switch {
	case strings.HasSuffix(text, "m"):
		return parseFloat(strings.TrimSuffix(text, "m")) / 1000
	case strings.HasSuffix(text, "n"):
		return parseFloat(strings.TrimSuffix(text, "n")) / 1e9
	default:
		return parseFloat(text)
	}
}

// memoryScales maps quantity suffixes to GiB multipliers: binary suffixes
// scale by powers of 1024, decimal suffixes by powers of 1000.
var memoryScales = []struct {
	suffix string
	toGiB  float64
}{
	{"Ki", 1.0 / (1024 * 1024)},
	{"Mi", 1.0 / 1024},
	{"Gi", 1},
	{"Ti", 1024},
	{"k", 1.0 / (1000 * 1000)},
	{"M", 1.0 / 1000},
	{"G", 1},
	{"T", 1000},
}

// ParseMemoryGiB converts a Kubernetes memory quantity to GiB. A bare
// number is raw bytes. Unparseable or absent input yields 0.
func ParseMemoryGiB(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	for _, scale := range memoryScales {
		if strings.HasSuffix(text, scale.suffix) {
			return parseFloat(strings.TrimSuffix(text, scale.suffix)) * scale.toGiB
		}
	}
	return parseFloat(text) / (1 << 30)
}

func parseFloat(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return v
}

// round4 rounds to 4 decimal places so floating-point drift does not
// accumulate across many pods.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
