package internal

import "time"

const (
	// MaxLinks caps the registry size.
	MaxLinks = 8
	// SnapshotRetention is how many snapshots per link survive a check cycle.
	SnapshotRetention = 5
	// MaxContentLength caps extracted page text, in characters.
	MaxContentLength = 200_000
)

type Link struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Tag       *string   `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}

type Snapshot struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Check struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	Diff      string    `json:"diff"`
	Summary   *string   `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckResult is the outcome of one link within a check cycle.
// Error is set when the link could not be fetched or processed.
type CheckResult struct {
	URL     string  `json:"url"`
	Tag     *string `json:"tag"`
	Changed bool    `json:"changed"`
	Diff    string  `json:"diff"`
	Summary string  `json:"summary"`
	Error   *string `json:"error"`
}

func (r CheckResult) Failed() bool {
	return r.Error != nil
}
