package usage

import "time"

// Usage is a snapshot of a user's scan quota: how many risk reports the plan
// allows per window and how many have been started in the current one.
type Usage struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}
