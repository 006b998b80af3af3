// internal/model/models.go
package model

import "time"

// Organization is the tenant boundary. Rows are created out-of-band; this
// service only reads them.
type Organization struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Repository belongs to exactly one organization. ExternalID is the
// provider-side identifier and is stable across renames; Name is the mutable
// display name the webhook pipeline keeps in sync.
type Repository struct {
	ID             int64
	OrganizationID int64
	Provider       string
	ExternalID     string
	Name           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CommitAuthor is unique per (organization, email). Name is best-effort
// display metadata set only at creation.
type CommitAuthor struct {
	ID             int64
	OrganizationID int64
	Email          string
	Name           string
	CreatedAt      time.Time
}

// Commit is unique per (repository, key). AuthorID is nil when the raw
// author string could not be safely parsed or stored.
type Commit struct {
	ID             int64
	OrganizationID int64
	RepositoryID   int64
	Key            string
	Message        string
	AuthorID       *int64
	DateAdded      time.Time
}
