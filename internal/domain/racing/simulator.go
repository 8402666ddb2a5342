package racing

import "math/rand"

// FieldSimulator is a minimal Simulator: it places the horse uniformly in an
// eight-runner field. A full tick-by-tick simulation is out of the core's
// scope (§4.7); this exists so the lifecycle has something real to drive.
type FieldSimulator struct {
	FieldSize int
	Rand      func() *rand.Rand
}

func (s *FieldSimulator) rng() *rand.Rand {
	if s.Rand != nil {
		return s.Rand()
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

// Simulate implements Simulator.
func (s *FieldSimulator) Simulate(raceID uint8, horseID string) RunResult {
	field := s.FieldSize
	if field <= 0 {
		field = 8
	}
	return RunResult{Place: s.rng().Intn(field) + 1}
}
