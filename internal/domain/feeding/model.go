// Package feeding implements the feeding domain processor sharing the
// request lifecycle engine (§4.7 "Feeding").
package feeding

import "time"

// Response is the computed outcome of one feeding session: the happiness
// delta applied to the horse.
type Response struct {
	HappinessDelta int
	FirstSample    bool
}

// Horse is the feeding processor's view of the fed horse.
type Horse struct {
	ID         string
	Happiness  int
	SeenFeedID *uint8 // nil until HorseFeedingPreference is checked for FeedingID
}

// Session is the persisted record of one feeding event.
type Session struct {
	ID             string
	HorseID        string
	FeedingID      uint8
	UserID         string
	HappinessDelta int
	CreatedDate    time.Time
}
