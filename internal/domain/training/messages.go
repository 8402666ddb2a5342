package training

import "time"

// Requested is published when a training action is accepted. SessionId is
// the idempotency token.
type Requested struct {
	RequestId  string
	HorseId    string
	TrainingId uint8
	SessionId  string
	UserId     string
}

// Completed is published once the training session has been committed.
type Completed struct {
	RequestId         string
	HorseId           string
	TrainingId        uint8
	SessionId         string
	TrainingSessionId string
	UserId            string
	CompletedAt       time.Time
}
