// internal/database/store.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	custom_errors "bitbucket-webhook-ingest/internal/errors"
	"bitbucket-webhook-ingest/internal/model"
)

// commitKeyConstraint is the unique index backing the (repository, key)
// idempotence contract. Only a violation of this specific constraint is
// absorbed as a duplicate delivery; any other integrity failure is real.
const commitKeyConstraint = "commits_repository_id_key_key"

// Store exposes the domain-level persistence operations, opening transactions
// on its pool where an operation needs atomicity.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetOrganizationByID(ctx context.Context, id int64) (model.Organization, error) {
	org, err := New(s.pool).GetOrganizationByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Organization{}, &custom_errors.ErrOrganizationNotFound{ID: id}
	}
	return org, err
}

func (s *Store) GetRepositoryByExternalID(ctx context.Context, orgID int64, provider, externalID string) (model.Repository, error) {
	repo, err := New(s.pool).GetRepositoryByExternalID(ctx, orgID, provider, externalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, &custom_errors.ErrRepositoryNotFound{
			OrganizationID: orgID,
			Provider:       provider,
			ExternalID:     externalID,
		}
	}
	return repo, err
}

func (s *Store) UpdateRepositoryName(ctx context.Context, repoID int64, name string) error {
	return New(s.pool).UpdateRepositoryName(ctx, repoID, name)
}

// IngestCommitParams describes one commit to persist. AuthorID short-circuits
// author resolution when the caller already resolved the email in this
// payload; otherwise a non-empty AuthorEmail is resolved-or-created inside the
// same transaction as the insert. Both nil/empty means the commit is stored
// with a null author.
type IngestCommitParams struct {
	OrganizationID int64
	RepositoryID   int64
	Key            string
	Message        string
	DateAdded      time.Time
	AuthorID       *int64
	AuthorEmail    string
	AuthorName     string
}

// IngestCommit runs author resolution and the commit insert as one atomic
// unit. A duplicate (repository, key) rolls the whole unit back and returns
// ErrDuplicateCommit so the caller can absorb re-deliveries.
func (s *Store) IngestCommit(ctx context.Context, p IngestCommitParams) (*int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ingest transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	q := New(tx)

	authorID := p.AuthorID
	if authorID == nil && p.AuthorEmail != "" {
		id, err := q.UpsertCommitAuthor(ctx, p.OrganizationID, p.AuthorEmail, p.AuthorName)
		if err != nil {
			return nil, fmt.Errorf("resolve commit author: %w", err)
		}
		authorID = &id
	}

	if err := q.InsertCommit(ctx, p.OrganizationID, p.RepositoryID, p.Key, p.Message, authorID, p.DateAdded); err != nil {
		if isDuplicateCommit(err) {
			return nil, custom_errors.ErrDuplicateCommit
		}
		return nil, fmt.Errorf("insert commit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ingest transaction: %w", err)
	}
	return authorID, nil
}

func isDuplicateCommit(err error) bool {
	var pgErr *pgconn.PgError
	// 23505 = unique_violation
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == commitKeyConstraint
}
