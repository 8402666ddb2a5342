package racing

import "time"

// Requested is published when a race entry is accepted.
type Requested struct {
	RequestId string
	RaceId    uint8
	HorseId   string
	OwnerId   string
}

// Completed is published once the RaceRun has been committed.
type Completed struct {
	RequestId   string
	RaceId      uint8
	HorseId     string
	RaceRunId   string
	OwnerId     string
	CompletedAt time.Time
}
