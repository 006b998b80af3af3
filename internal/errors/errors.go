// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrDuplicateCommit signals that a commit insert hit the (repository, key)
// unique constraint. Re-delivered payloads are expected to produce it; callers
// treat it as "already ingested", not as a failure.
var ErrDuplicateCommit = errors.New("commit already exists for repository")

// ErrOrganizationNotFound is returned when an organization id does not resolve.
type ErrOrganizationNotFound struct {
	ID int64
}

func (e *ErrOrganizationNotFound) Error() string {
	return fmt.Sprintf("organization %d not found", e.ID)
}

// ErrRepositoryNotFound is returned when a push references a repository that
// was never registered for the organization.
type ErrRepositoryNotFound struct {
	OrganizationID int64
	Provider       string
	ExternalID     string
}

func (e *ErrRepositoryNotFound) Error() string {
	return fmt.Sprintf("no %s repository with external id %q for organization %d",
		e.Provider, e.ExternalID, e.OrganizationID)
}
