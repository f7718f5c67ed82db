// Package store persists users, submitted declarations and their
// certificates. Gorm is the postgres implementation; Memory serves when no
// database is configured.
package store

import (
	"context"
	"errors"
	"time"

	"p9e.in/veritrace/models"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
)

var ErrNotFound = errors.New("not found")

// Repository is what the HTTP layer needs from persistence. Every read is
// scoped to one owner.
type Repository interface {
	UpsertUser(ctx context.Context, u *models.User) error
	User(ctx context.Context, id string) (models.User, error)

	SaveDeclaration(ctx context.Context, owner string, rec declaration.Record) error
	Declaration(ctx context.Context, owner, id string) (declaration.Record, error)
	LatestDeclaration(ctx context.Context, owner string) (declaration.Record, error)
	Declarations(ctx context.Context, owner string) ([]declaration.Record, error)

	SaveCertificate(ctx context.Context, owner string, c certificate.Certificate) error
	// SaveSubmission stores a submitted declaration and its certificate
	// together: either both are saved or neither is.
	SaveSubmission(ctx context.Context, owner string, rec declaration.Record, c certificate.Certificate) error
	Certificate(ctx context.Context, owner, declarationID string) (certificate.Certificate, error)
	// Issued returns owner's certificates paired with their declarations.
	Issued(ctx context.Context, owner string) ([]certificate.Issued, error)
}

// ForOwner adapts repo into the workflow's SessionStore for one owner:
// Save issues the certificate of a submission and stores both, Load returns
// the owner's latest declaration.
func ForOwner(repo Repository, owner string, opts ...OwnerOption) declaration.SessionStore {
	s := ownerStore{repo: repo, owner: owner, now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// OwnerOption configures the store returned by ForOwner.
type OwnerOption func(*ownerStore)

// IssueAt sets the clock certificates are issued by.
func IssueAt(now func() time.Time) OwnerOption {
	return func(s *ownerStore) { s.now = now }
}

type ownerStore struct {
	repo  Repository
	owner string
	now   func() time.Time
}

func (s ownerStore) Save(ctx context.Context, rec declaration.Record) error {
	cert, err := certificate.Issue(rec, s.now())
	if err != nil {
		return err
	}
	return s.repo.SaveSubmission(ctx, s.owner, rec, cert)
}

func (s ownerStore) Load(ctx context.Context) (declaration.Record, error) {
	rec, err := s.repo.LatestDeclaration(ctx, s.owner)
	if errors.Is(err, ErrNotFound) {
		return declaration.Record{}, declaration.ErrNoRecord
	}
	return rec, err
}

var (
	_ Repository = (*Gorm)(nil)
	_ Repository = (*Memory)(nil)
)
