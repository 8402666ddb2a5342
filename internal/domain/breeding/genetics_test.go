package breeding

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRand(seed int64) func() *rand.Rand {
	return func() *rand.Rand { return rand.New(rand.NewSource(seed)) }
}

func fullStats() []Statistic {
	var stats []Statistic
	for _, s := range heritableStats {
		stats = append(stats, Statistic{Stat: s, DominantPotential: 60, RecessivePotential: 40, Actual: 20})
	}
	return stats
}

func TestGenetics_Breed_ProducesAllHeritableStatsPlusHappiness(t *testing.T) {
	g := &Genetics{NameGenerator: WordListNameGenerator{}, Rand: seededRand(1)}
	sire := Horse{ID: "sire-1", ColorID: "1", Statistics: fullStats()}
	dam := Horse{ID: "dam-1", ColorID: "2", Statistics: fullStats()}
	colors := []Color{{ID: "1", Name: "Bay", Weight: 1}, {ID: "2", Name: "Chestnut", Weight: 1}}

	result, err := g.Breed(sire, dam, "owner-1", colors)
	require.NoError(t, err)

	assert.Len(t, result.Foal.Statistics, len(heritableStats)+1)
	assert.Equal(t, sire.Parented+1, result.SireParented)
	assert.Equal(t, dam.Parented+1, result.DamParented)
	assert.NotEmpty(t, result.Foal.Name)

	var sawHappiness bool
	for _, stat := range result.Foal.Statistics {
		if stat.Stat == StatHappiness {
			sawHappiness = true
			assert.Equal(t, happinessSeededAt, stat.DominantPotential)
			assert.Equal(t, happinessActual, stat.Actual)
		} else {
			assert.GreaterOrEqual(t, stat.DominantPotential, potentialFloor)
			assert.LessOrEqual(t, stat.DominantPotential, potentialCeiling)
		}
	}
	assert.True(t, sawHappiness)
}

func TestGenetics_Breed_MissingStatIsInvariantError(t *testing.T) {
	g := &Genetics{NameGenerator: WordListNameGenerator{}, Rand: seededRand(1)}
	sire := Horse{ID: "sire-1", ColorID: "1", Statistics: nil}
	dam := Horse{ID: "dam-1", ColorID: "1", Statistics: fullStats()}
	colors := []Color{{ID: "1", Name: "Bay", Weight: 1}}

	_, err := g.Breed(sire, dam, "owner-1", colors)
	assert.Error(t, err)
}

func TestGenetics_Breed_EmptyColorCatalogFails(t *testing.T) {
	g := &Genetics{NameGenerator: WordListNameGenerator{}, Rand: seededRand(1)}
	sire := Horse{ID: "sire-1", Statistics: fullStats()}
	dam := Horse{ID: "dam-1", Statistics: fullStats()}

	_, err := g.Breed(sire, dam, "owner-1", nil)
	assert.Error(t, err)
}

func TestMutate_ClampsOutOfRangeToFixedValue(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		out := mutate(rng, 50)
		assert.True(t, out == potentialClampTo || (out >= potentialFloor && out <= potentialCeiling))
	}
}

func TestSampleActual_NeverBelowOne(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for dom := 0; dom <= 5; dom++ {
		actual := sampleActual(rng, dom)
		assert.GreaterOrEqual(t, actual, 1)
	}
}

func TestSampleColor_SpecialColorBoostedWhenBothParentsSpecial(t *testing.T) {
	colors := []Color{
		{ID: "1", Name: "Bay", Weight: 10, IsSpecial: false},
		{ID: "2", Name: "Opal", Weight: 100, IsSpecial: true},
	}

	special := 0
	const trials = 2000
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < trials; i++ {
		c, err := sampleColor(rng, colors, "2", "2")
		require.NoError(t, err)
		if c.IsSpecial {
			special++
		}
	}
	// With both parents special the frequency multiplier is 50x; the special
	// color should win a large majority of draws despite its high rarity weight.
	assert.Greater(t, special, trials/2)
}
