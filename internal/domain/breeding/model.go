// Package breeding implements the breeding genetics processor, the worked
// example of a domain processor sharing the request lifecycle engine.
package breeding

import "time"

// Sex is the foal's sex, sampled uniformly.
type Sex string

const (
	SexColt  Sex = "Colt"
	SexFilly Sex = "Filly"
)

// LegType is a horse's running style, sampled uniformly over the enumerated set.
type LegType string

const (
	LegTypeFrontRunner LegType = "FrontRunner"
	LegTypeStalker     LegType = "Stalker"
	LegTypeCloser      LegType = "Closer"
	LegTypeWireToWire  LegType = "WireToWire"
)

var legTypes = []LegType{LegTypeFrontRunner, LegTypeStalker, LegTypeCloser, LegTypeWireToWire}

// Stat is a trainable horse attribute. Happiness is seeded fixed at breeding
// time rather than inherited.
type Stat string

const (
	StatSpeed       Stat = "Speed"
	StatStamina     Stat = "Stamina"
	StatAgility     Stat = "Agility"
	StatTemperament Stat = "Temperament"
	StatHappiness   Stat = "Happiness"
)

// heritableStats excludes Happiness, which every foal is seeded with instead
// of inheriting.
var heritableStats = []Stat{StatSpeed, StatStamina, StatAgility, StatTemperament}

// Color is a catalog entry for coat color, weighted by rarity.
type Color struct {
	ID        string
	Name      string
	Weight    int
	IsSpecial bool
}

// Statistic is one stat's potential/actual triple for a horse.
type Statistic struct {
	Stat               Stat
	DominantPotential  int
	RecessivePotential int
	Actual             int
}

// Horse is the breeding processor's view of a sire, dam, or foal.
type Horse struct {
	ID                      string
	Name                    string
	OwnerID                 string
	SireID                  *string
	DamID                   *string
	Sex                     Sex
	LegType                 LegType
	ColorID                 string
	Parented                int
	RacesStarted            int
	RacesWon                int
	HasTrainedSinceLastRace bool
	Statistics              []Statistic
	CreatedDate             time.Time
}

// Result is what the genetics algorithm hands back to the lifecycle engine
// for persistence in a single transaction (§4.7 step 8).
type Result struct {
	Foal         Horse
	SireParented int
	DamParented  int
}
