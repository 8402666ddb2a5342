package breeding

import "math/rand"

var (
	coltPrefixes  = []string{"Midnight", "Thunder", "Iron", "Golden", "Silver", "Shadow", "Copper", "Royal"}
	fillyPrefixes = []string{"Starlight", "Velvet", "Rose", "Crystal", "Willow", "Dawn", "Pearl", "Amber"}
	nameSuffixes  = []string{"Runner", "Dash", "Gallop", "Spirit", "Glory", "Chaser", "Flame", "Whisper"}
)

// WordListNameGenerator is the default NameGenerator: a two-word combination
// drawn from fixed prefix/suffix lists, biased by the foal's sex.
type WordListNameGenerator struct{}

// Generate implements NameGenerator.
func (WordListNameGenerator) Generate(rng *rand.Rand, sex Sex) string {
	prefixes := coltPrefixes
	if sex == SexFilly {
		prefixes = fillyPrefixes
	}
	return prefixes[rng.Intn(len(prefixes))] + " " + nameSuffixes[rng.Intn(len(nameSuffixes))]
}
