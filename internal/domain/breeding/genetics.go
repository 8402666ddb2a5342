package breeding

import (
	"fmt"
	"math/rand"

	"github.com/ovation22/triplederby-workers/internal/errs"
)

// NameGenerator is the opaque name-generator collaborator (§4.7 step 6).
type NameGenerator interface {
	Generate(rng *rand.Rand, sex Sex) string
}

// potentialFloor/potentialCeiling bound a valid mutated potential; anything
// outside this range is clamped to potentialClampTo rather than rejected.
const (
	potentialFloor    = 30
	potentialCeiling  = 95
	potentialClampTo  = 50
	happinessSeededAt = 100
	happinessActual   = 50
)

// Genetics runs the §4.7 worked-example algorithm: sample sex, leg type, and
// color, Punnett-square the heritable stats, name the foal, and return the
// side effects for the lifecycle engine to persist in one transaction.
type Genetics struct {
	NameGenerator NameGenerator
	Rand          func() *rand.Rand // test seam; defaults to a process-seeded source
}

func (g *Genetics) rng() *rand.Rand {
	if g.Rand != nil {
		return g.Rand()
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

// Breed computes a foal for sire and dam against the catalog of available
// colors, and the Parented counters the lifecycle engine should increment.
func (g *Genetics) Breed(sire, dam Horse, ownerID string, colors []Color) (Result, error) {
	rng := g.rng()

	foal := Horse{
		OwnerID: ownerID,
		SireID:  strPtr(sire.ID),
		DamID:   strPtr(dam.ID),
		Sex:     sampleSex(rng),
		LegType: sampleLegType(rng),
	}

	color, err := sampleColor(rng, colors, sire.ColorID, dam.ColorID)
	if err != nil {
		return Result{}, err
	}
	foal.ColorID = color.ID

	stats, err := g.breedStatistics(rng, sire, dam)
	if err != nil {
		return Result{}, err
	}
	foal.Statistics = stats

	foal.Name = g.NameGenerator.Generate(rng, foal.Sex)

	return Result{
		Foal:         foal,
		SireParented: sire.Parented + 1,
		DamParented:  dam.Parented + 1,
	}, nil
}

func sampleSex(rng *rand.Rand) Sex {
	if rng.Intn(2) == 0 {
		return SexColt
	}
	return SexFilly
}

func sampleLegType(rng *rand.Rand) LegType {
	return legTypes[rng.Intn(len(legTypes))]
}

// sampleColor implements §4.7 step 4: weighted sample by 1/max(1,Weight)
// frequency, boosted for IsSpecial colors by how many parents are special.
func sampleColor(rng *rand.Rand, colors []Color, sireColorID, damColorID string) (Color, error) {
	if len(colors) == 0 {
		return Color{}, errs.Invariant("color catalog is empty")
	}

	sireColor, sireOK := findColor(colors, sireColorID)
	damColor, damOK := findColor(colors, damColorID)
	specialParents := 0
	if sireOK && sireColor.IsSpecial {
		specialParents++
	}
	if damOK && damColor.IsSpecial {
		specialParents++
	}
	specialMultiplier := map[int]float64{0: 1.0, 1: 10.0, 2: 50.0}[specialParents]

	frequencies := make([]float64, len(colors))
	var total float64
	for i, c := range colors {
		weight := c.Weight
		if weight < 1 {
			weight = 1
		}
		freq := 1.0 / float64(weight)
		if c.IsSpecial {
			freq *= specialMultiplier
		}
		frequencies[i] = freq
		total += freq
	}

	draw := rng.Float64() * total
	var cumulative float64
	for i, freq := range frequencies {
		cumulative += freq
		if draw < cumulative {
			return colors[i], nil
		}
	}
	return colors[len(colors)-1], nil
}

func findColor(colors []Color, id string) (Color, bool) {
	for _, c := range colors {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}

// breedStatistics implements §4.7 step 5 for every heritable stat plus the
// fixed-seed Happiness stat.
func (g *Genetics) breedStatistics(rng *rand.Rand, sire, dam Horse) ([]Statistic, error) {
	stats := make([]Statistic, 0, len(heritableStats)+1)

	for _, stat := range heritableStats {
		sireStat, ok := findStat(sire.Statistics, stat)
		if !ok {
			return nil, errs.Invariant(fmt.Sprintf("sire is missing stat %s", stat))
		}
		damStat, ok := findStat(dam.Statistics, stat)
		if !ok {
			return nil, errs.Invariant(fmt.Sprintf("dam is missing stat %s", stat))
		}

		dominant, recessive := punnett(rng, sireStat, damStat)
		dominant = mutate(rng, dominant)
		recessive = mutate(rng, recessive)

		stats = append(stats, Statistic{
			Stat:               stat,
			DominantPotential:  dominant,
			RecessivePotential: recessive,
			Actual:             sampleActual(rng, dominant),
		})
	}

	stats = append(stats, Statistic{
		Stat:               StatHappiness,
		DominantPotential:  happinessSeededAt,
		RecessivePotential: happinessSeededAt,
		Actual:             happinessActual,
	})

	return stats, nil
}

func findStat(stats []Statistic, stat Stat) (Statistic, bool) {
	for _, s := range stats {
		if s.Stat == stat {
			return s, true
		}
	}
	return Statistic{}, false
}

// punnett picks one of four quadrants: two are indifferent to which parent
// contributes (straight sire or straight dam), two cross the pair and use a
// secondary uniform flip to decide which parent's allele becomes dominant.
func punnett(rng *rand.Rand, sire, dam Statistic) (dominant, recessive int) {
	switch rng.Intn(4) {
	case 0:
		return sire.DominantPotential, sire.RecessivePotential
	case 1:
		return dam.DominantPotential, dam.RecessivePotential
	default:
		if rng.Intn(2) == 0 {
			return sire.DominantPotential, dam.RecessivePotential
		}
		return dam.DominantPotential, sire.RecessivePotential
	}
}

// mutate applies the 100-bucket rarity table to one potential value.
func mutate(rng *rand.Rand, potential int) int {
	bucket := rng.Intn(100) + 1
	switch bucket {
	case 1:
		potential += rng.Intn(16) // [0, +15]
	case 2:
		potential -= rng.Intn(16) // [-15, 0]
	default:
		potential += rng.Intn(11) - 5 // [-5, +5]
	}

	if potential < potentialFloor || potential > potentialCeiling {
		return potentialClampTo
	}
	return potential
}

// sampleActual draws Actual uniformly from [max(1, dom/3), dom/2].
func sampleActual(rng *rand.Rand, dominant int) int {
	low := dominant / 3
	if low < 1 {
		low = 1
	}
	high := dominant / 2
	if high < low {
		return low
	}
	return low + rng.Intn(high-low+1)
}

func strPtr(s string) *string { return &s }
