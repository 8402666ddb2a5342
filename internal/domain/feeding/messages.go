package feeding

import "time"

// Requested is published when a feeding action is accepted. SessionId is the
// idempotency token (§4.7: "SessionId is the idempotency token").
type Requested struct {
	RequestId string
	HorseId   string
	FeedingId uint8
	SessionId string
	UserId    string
}

// Completed is published once the feeding session has been committed.
type Completed struct {
	RequestId        string
	HorseId          string
	FeedingId        uint8
	SessionId        string
	FeedingSessionId string
	UserId           string
	CompletedAt      time.Time
}
