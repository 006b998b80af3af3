// internal/database/queries.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bitbucket-webhook-ingest/internal/model"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same queries run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Queries holds the raw SQL operations. Row-level "not found" surfaces as
// pgx.ErrNoRows; domain error mapping happens in Store.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const getOrganizationByID = `
SELECT id, name, created_at
FROM organizations
WHERE id = $1`

func (q *Queries) GetOrganizationByID(ctx context.Context, id int64) (model.Organization, error) {
	var org model.Organization
	err := q.db.QueryRow(ctx, getOrganizationByID, id).
		Scan(&org.ID, &org.Name, &org.CreatedAt)
	return org, err
}

const getRepositoryByExternalID = `
SELECT id, organization_id, provider, external_id, name, created_at, updated_at
FROM repositories
WHERE organization_id = $1 AND provider = $2 AND external_id = $3`

func (q *Queries) GetRepositoryByExternalID(ctx context.Context, orgID int64, provider, externalID string) (model.Repository, error) {
	var repo model.Repository
	err := q.db.QueryRow(ctx, getRepositoryByExternalID, orgID, provider, externalID).
		Scan(&repo.ID, &repo.OrganizationID, &repo.Provider, &repo.ExternalID,
			&repo.Name, &repo.CreatedAt, &repo.UpdatedAt)
	return repo, err
}

const updateRepositoryName = `
UPDATE repositories
SET name = $2, updated_at = now()
WHERE id = $1`

func (q *Queries) UpdateRepositoryName(ctx context.Context, repoID int64, name string) error {
	_, err := q.db.Exec(ctx, updateRepositoryName, repoID, name)
	return err
}

// upsertCommitAuthor is an atomic get-or-create. The no-op DO UPDATE keeps the
// existing row's name (set only at creation) while still returning its id, and
// blocks until a concurrent insert for the same (organization, email) resolves.
const upsertCommitAuthor = `
INSERT INTO commit_authors (organization_id, email, name)
VALUES ($1, $2, $3)
ON CONFLICT (organization_id, email) DO UPDATE SET email = commit_authors.email
RETURNING id`

func (q *Queries) UpsertCommitAuthor(ctx context.Context, orgID int64, email, name string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, upsertCommitAuthor, orgID, email, name).Scan(&id)
	return id, err
}

const insertCommit = `
INSERT INTO commits (organization_id, repository_id, key, message, author_id, date_added)
VALUES ($1, $2, $3, $4, $5, $6)`

func (q *Queries) InsertCommit(ctx context.Context, orgID, repoID int64, key, message string, authorID *int64, dateAdded time.Time) error {
	_, err := q.db.Exec(ctx, insertCommit, orgID, repoID, key, message, authorID, dateAdded)
	return err
}

const getCommitsByRepoID = `
SELECT id, organization_id, repository_id, key, message, author_id, date_added
FROM commits
WHERE repository_id = $1
ORDER BY date_added DESC`

func (q *Queries) GetCommitsByRepoID(ctx context.Context, repoID int64) ([]model.Commit, error) {
	rows, err := q.db.Query(ctx, getCommitsByRepoID, repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []model.Commit
	for rows.Next() {
		var c model.Commit
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.RepositoryID, &c.Key,
			&c.Message, &c.AuthorID, &c.DateAdded); err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

const getCommitAuthorsByOrgID = `
SELECT id, organization_id, email, name, created_at
FROM commit_authors
WHERE organization_id = $1
ORDER BY email`

func (q *Queries) GetCommitAuthorsByOrgID(ctx context.Context, orgID int64) ([]model.CommitAuthor, error) {
	rows, err := q.db.Query(ctx, getCommitAuthorsByOrgID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []model.CommitAuthor
	for rows.Next() {
		var a model.CommitAuthor
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Email, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}
