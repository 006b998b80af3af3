// internal/webhook/push.go
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bitbucket-webhook-ingest/internal/database"
	custom_errors "bitbucket-webhook-ingest/internal/errors"
	"bitbucket-webhook-ingest/internal/model"
)

// Provider is the source-control provider this receiver ingests from.
const Provider = "bitbucket"

// maxAuthorEmailLen matches the commit_authors.email column width; anything
// longer is stored as a null author rather than failing the commit.
const maxAuthorEmailLen = 75

// Store is the persistence surface the push handler needs.
type Store interface {
	GetRepositoryByExternalID(ctx context.Context, orgID int64, provider, externalID string) (model.Repository, error)
	UpdateRepositoryName(ctx context.Context, repoID int64, name string) error
	IngestCommit(ctx context.Context, p database.IngestCommitParams) (*int64, error)
}

// IgnoreMatcher classifies commit messages that should be skipped entirely.
type IgnoreMatcher interface {
	Match(message string) bool
}

// PushHandler ingests the commits carried by a repo:push event.
type PushHandler struct {
	store  Store
	ignore IgnoreMatcher
	logger *slog.Logger
}

func NewPushHandler(store Store, ignore IgnoreMatcher, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		store:  store,
		ignore: ignore,
		logger: logger,
	}
}

// Handle resolves the repository, syncs its display name, and ingests every
// commit in the payload. Only an unregistered repository aborts the payload;
// all other failures are scoped to the commit that caused them.
func (h *PushHandler) Handle(ctx context.Context, org model.Organization, body []byte) error {
	var event PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode push event: %w", err)
	}

	repo, err := h.store.GetRepositoryByExternalID(ctx, org.ID, Provider, event.Repository.UUID)
	if err != nil {
		return err
	}

	if event.Repository.FullName != "" && event.Repository.FullName != repo.Name {
		if err := h.store.UpdateRepositoryName(ctx, repo.ID, event.Repository.FullName); err != nil {
			return fmt.Errorf("sync repository name: %w", err)
		}
	}

	// Per-payload memo so one delivery resolves each email at most once.
	authors := make(map[string]int64)

	for _, change := range event.Push.Changes {
		for _, commit := range change.Commits {
			if h.ignore.Match(commit.Message) {
				continue
			}
			h.ingestCommit(ctx, org, repo, commit, authors)
		}
	}
	return nil
}

func (h *PushHandler) ingestCommit(ctx context.Context, org model.Organization, repo model.Repository, commit PayloadCommit, authors map[string]int64) {
	date, err := time.Parse(time.RFC3339, commit.Date)
	if err != nil {
		h.logger.Error("bitbucket.webhook.invalid-commit-date",
			"organization_id", org.ID, "repository_id", repo.ID,
			"commit", commit.Hash, "date", commit.Date)
		return
	}

	params := database.IngestCommitParams{
		OrganizationID: org.ID,
		RepositoryID:   repo.ID,
		Key:            commit.Hash,
		Message:        commit.Message,
		DateAdded:      date.UTC(),
	}

	email, ok := parseRawAuthor(commit.Author.Raw)
	if ok && len(email) <= maxAuthorEmailLen {
		if id, seen := authors[email]; seen {
			params.AuthorID = &id
		} else {
			params.AuthorEmail = email
			params.AuthorName = displayName(commit.Author.Raw)
		}
	}

	authorID, err := h.store.IngestCommit(ctx, params)
	switch {
	case errors.Is(err, custom_errors.ErrDuplicateCommit):
		// Re-delivered payload; the row already exists.
		return
	case err != nil:
		h.logger.Error("bitbucket.webhook.commit-ingest-failed",
			"organization_id", org.ID, "repository_id", repo.ID,
			"commit", commit.Hash, "error", err)
		return
	}

	// Memoize only after the transaction committed; a rolled-back ingest
	// rolls back any author row it created.
	if params.AuthorEmail != "" && authorID != nil {
		authors[email] = *authorID
	}
}

// parseRawAuthor extracts the email from a raw "Name <email>" string: the
// substring strictly between the last '<' and a trailing '>'. Best effort,
// not RFC 822 validation.
func parseRawAuthor(raw string) (string, bool) {
	open := strings.LastIndex(raw, "<")
	if open == -1 || !strings.HasSuffix(raw, ">") {
		return "", false
	}
	email := raw[open+1 : len(raw)-1]
	if email == "" {
		return "", false
	}
	return email, true
}

// displayName is the portion of the raw string before the first '<', trimmed.
func displayName(raw string) string {
	return strings.TrimSpace(raw[:strings.Index(raw, "<")])
}
