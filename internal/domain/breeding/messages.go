package breeding

import "time"

// Requested is published by the API when a breeding request is accepted.
// RequestId is both the Request row's primary key and its idempotency token.
type Requested struct {
	RequestId string
	SireId    string
	DamId     string
	OwnerId   string
}

// Completed is published once the foal has been committed.
type Completed struct {
	RequestId   string
	SireId      string
	DamId       string
	FoalId      string
	OwnerId     string
	CompletedAt time.Time
}
