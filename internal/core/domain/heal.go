package domain

import "time"

// HealEntry marks a height that committed without complete data (missing
// receipts) or failed during a review pass, so the review scheduler can
// revisit it ahead of the sliding window.
type HealEntry struct {
	ID          string    `json:"id"`
	BlockNumber uint64    `json:"block_number"`
	Reason      string    `json:"reason"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
}
