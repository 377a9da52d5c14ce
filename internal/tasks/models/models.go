package models

import "time"

type Task struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Date      string    `json:"date"`
	Tags      []string  `json:"tags"`
	OwnerID   int64     `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskFields carries client-supplied attributes for creation. The owner
// is never part of it: it is always set server-side from the verified
// identity.
type TaskFields struct {
	Text string
	Date string
	Tags []string
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Text      *string
	Completed *bool
	Date      *string
	Tags      []string
}
