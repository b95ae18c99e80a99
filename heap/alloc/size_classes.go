package alloc

import (
	"fmt"
	"math"
	"strings"

	"github.com/joshuapare/heapkit/internal/format"
)

// SizeClassConfig defines the segregated list layout.
//
// Class thresholds are generated in two phases: a linear run of small
// classes, then logarithmic growth until LargeMin. Every block larger than
// LargeMin lands in the final catch-all class.
type SizeClassConfig struct {
	// Name for this configuration (for reports)
	Name string

	// Linear settings. SmallIncrement == 0 disables the linear phase.
	SmallMax       int // upper bound of the first class
	LinearMax      int // linear thresholds stop below this size
	SmallIncrement int

	// Logarithmic settings
	GrowthFactor float64
	LargeMin     int // last threshold; larger blocks use the catch-all class
}

// Predefined configurations.
var (
	// PowerOfTwo: 128, 256, ..., 131072 plus a catch-all = 12 classes.
	ConfigPowerOfTwo = SizeClassConfig{
		Name:         "PowerOfTwo",
		SmallMax:     128,
		GrowthFactor: 2.0,
		LargeMin:     131072,
	}

	// FineGrained: 32-256 step 16 (14 classes) + 256-64K log growth.
	ConfigFineGrained = SizeClassConfig{
		Name:           "FineGrained",
		SmallMax:       32,
		LinearMax:      256,
		SmallIncrement: 16,
		GrowthFactor:   1.5,
		LargeMin:       65536,
	}
)

// LookupConfig returns a predefined configuration by case-insensitive name.
func LookupConfig(name string) (*SizeClassConfig, bool) {
	for _, c := range []*SizeClassConfig{&ConfigPowerOfTwo, &ConfigFineGrained} {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// Bounds returns the generated class thresholds. Class i holds block sizes
// in (Bounds[i-1], Bounds[i]]; the last class holds everything above the
// final threshold.
func (c SizeClassConfig) Bounds() ([]int, error) {
	t, err := newSizeClassTable(c)
	if err != nil {
		return nil, err
	}
	return t.bounds, nil
}

// sizeClassTable holds the computed size class boundaries.
type sizeClassTable struct {
	config     SizeClassConfig
	bounds     []int // inclusive upper bound of each class but the last
	numClasses int
}

// newSizeClassTable computes size class boundaries from config.
func newSizeClassTable(config SizeClassConfig) (*sizeClassTable, error) {
	if config.SmallMax < format.MinBlockSize || config.LargeMin < config.SmallMax {
		return nil, fmt.Errorf("%w: size classes %q: bad bounds [%d, %d]",
			ErrBadConfig, config.Name, config.SmallMax, config.LargeMin)
	}
	if config.GrowthFactor <= 1 {
		return nil, fmt.Errorf("%w: size classes %q: growth factor %.2f must exceed 1",
			ErrBadConfig, config.Name, config.GrowthFactor)
	}

	table := &sizeClassTable{
		config: config,
		bounds: make([]int, 0, 32),
	}

	// Phase 1: linear increments
	size := config.SmallMax
	if config.SmallIncrement > 0 {
		for ; size < config.LinearMax && size < config.LargeMin; size += config.SmallIncrement {
			table.bounds = append(table.bounds, size)
		}
	}

	// Phase 2: logarithmic growth
	for size < config.LargeMin {
		table.bounds = append(table.bounds, size)
		next := format.Align8(int(math.Ceil(float64(size) * config.GrowthFactor)))
		if next <= size {
			next = size + format.Alignment // Ensure progress
		}
		size = next
	}
	table.bounds = append(table.bounds, config.LargeMin)

	table.numClasses = len(table.bounds) + 1
	return table, nil
}

// classify returns the class index for a block size.
// Returns numClasses-1 for sizes above the last threshold.
func (t *sizeClassTable) classify(size int) int {
	lo, hi := 0, len(t.bounds)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if size <= t.bounds[mid] {
			if mid == 0 || size > t.bounds[mid-1] {
				return mid
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return len(t.bounds)
}

// classRange returns the (lo, hi] size range of class c.
func (t *sizeClassTable) classRange(c int) (int, int) {
	lo := 0
	if c > 0 {
		lo = t.bounds[c-1]
	}
	if c >= len(t.bounds) {
		return lo, math.MaxInt
	}
	return lo, t.bounds[c]
}

// String returns a human-readable description of the size class table.
func (t *sizeClassTable) String() string {
	return t.config.Name
}
