package racing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldSimulator_Simulate_PlaceWithinFieldSize(t *testing.T) {
	sim := &FieldSimulator{FieldSize: 6, Rand: func() *rand.Rand { return rand.New(rand.NewSource(3)) }}

	for i := 0; i < 50; i++ {
		result := sim.Simulate(1, "horse-1")
		assert.GreaterOrEqual(t, result.Place, 1)
		assert.LessOrEqual(t, result.Place, 6)
	}
}

func TestFieldSimulator_Simulate_DefaultsToEightRunnerField(t *testing.T) {
	sim := &FieldSimulator{Rand: func() *rand.Rand { return rand.New(rand.NewSource(3)) }}
	result := sim.Simulate(1, "horse-1")
	assert.GreaterOrEqual(t, result.Place, 1)
	assert.LessOrEqual(t, result.Place, 8)
}
