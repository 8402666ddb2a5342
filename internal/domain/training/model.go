// Package training implements the training domain processor sharing the
// request lifecycle engine (§4.7 "Training").
package training

import "time"

// Phase is the horse's career phase, which scales training gains.
type Phase string

const (
	PhaseJuvenile Phase = "Juvenile"
	PhaseProspect Phase = "Prospect"
	PhaseVeteran  Phase = "Veteran"
)

// HappinessFloor is the minimum happiness required to train at all.
const HappinessFloor = 20

// Horse is the training processor's view of the horse being trained.
type Horse struct {
	ID                      string
	LegType                 string
	Phase                   Phase
	Happiness               int
	HasTrainedSinceLastRace bool
	Potential               int
	Actual                  int
}

// Outcome is the computed result of one training session.
type Outcome struct {
	Gain          int
	HappinessCost int
	Overworked    bool
}

// Session is the persisted record of one training event.
type Session struct {
	ID            string
	HorseID       string
	TrainingID    uint8
	UserID        string
	Gain          int
	HappinessCost int
	Overworked    bool
	CreatedDate   time.Time
}
