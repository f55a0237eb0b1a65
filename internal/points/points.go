// Package points assigns loyalty points to venues from a fixed
// weighted distribution.
package points

import (
	"math/rand"
	"strings"
	"time"
)

const (
	maxPoints = 50
	// Points values 10 and 20 carry extra weight so promotions cluster
	// around them.
	boostedWeight = 5
	baseWeight    = 1
)

// excludedArea never earns points regardless of discount status.
const excludedArea = "Edinburgh"

// Source yields uniform random integers. *rand.Rand satisfies it; tests
// inject a seeded instance for reproducibility.
type Source interface {
	Intn(n int) int
}

// Picker draws a points value from the weighted distribution.
type Picker struct {
	src        Source
	cumulative [maxPoints + 1]int
	total      int
}

// NewPicker builds a Picker around the given random source. A nil
// source falls back to a time-seeded generator.
func NewPicker(src Source) *Picker {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	p := &Picker{src: src}
	for pts := 0; pts <= maxPoints; pts++ {
		weight := baseWeight
		if pts == 10 || pts == 20 {
			weight = boostedWeight
		}
		p.total += weight
		p.cumulative[pts] = p.total
	}
	return p
}

// Pick returns the points for a venue. Venues without a student
// discount, and venues in the excluded area, always get 0; the draw is
// skipped entirely for them.
func (p *Picker) Pick(studentDiscountPresent bool, area *string) int {
	if !studentDiscountPresent {
		return 0
	}
	if area != nil && strings.EqualFold(strings.TrimSpace(*area), excludedArea) {
		return 0
	}

	roll := p.src.Intn(p.total) + 1
	for pts := 0; pts <= maxPoints; pts++ {
		if roll <= p.cumulative[pts] {
			return pts
		}
	}
	return 0
}
