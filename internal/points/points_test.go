package points

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestPickNoDiscountAlwaysZero(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, p.Pick(false, strPtr("Glasgow")))
		assert.Equal(t, 0, p.Pick(false, nil))
	}
}

func TestPickExcludedAreaAlwaysZero(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(1)))
	for _, area := range []string{"Edinburgh", "edinburgh", "EDINBURGH", "  Edinburgh  "} {
		for i := 0; i < 50; i++ {
			assert.Equal(t, 0, p.Pick(true, strPtr(area)), "area %q", area)
		}
	}
}

func TestPickRange(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(42)))
	for i := 0; i < 10000; i++ {
		got := p.Pick(true, strPtr("Glasgow"))
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 50)
	}
}

func TestPickNilAreaDraws(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(7)))
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		seen[p.Pick(true, nil)] = true
	}
	// With 5000 draws over 51 candidates the draw clearly ran.
	assert.Greater(t, len(seen), 30)
}

// 10 and 20 carry weight 5 against 1 for everything else, so over many
// trials they land roughly 5x as often as an ordinary value.
func TestPickDistributionBias(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(99)))

	const trials = 590000 // 10000 per unit of total weight (59)
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		counts[p.Pick(true, strPtr("Glasgow"))]++
	}

	expectedBase := float64(trials) / 59.0
	for _, special := range []int{10, 20} {
		ratio := float64(counts[special]) / expectedBase
		assert.InDelta(t, 5.0, ratio, 0.5, "points %d drawn %d times", special, counts[special])
	}

	// Spot-check a few ordinary values sit near the base rate.
	for _, ordinary := range []int{0, 7, 33, 50} {
		ratio := float64(counts[ordinary]) / expectedBase
		assert.InDelta(t, 1.0, ratio, 0.25, "points %d drawn %d times", ordinary, counts[ordinary])
	}
}

func TestNewPickerNilSource(t *testing.T) {
	p := NewPicker(nil)
	got := p.Pick(true, strPtr("Leith"))
	assert.GreaterOrEqual(t, got, 0)
	assert.LessOrEqual(t, got, 50)
}
