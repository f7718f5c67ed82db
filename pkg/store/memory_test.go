package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p9e.in/veritrace/models"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
)

func TestMemoryUpsertUserKeepsIdentity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := &models.User{Email: "ops@acme.test", CompanyName: "Acme", DID: "did:web:1.veritrace.eu", AuthMethod: "eudi-wallet"}
	require.NoError(t, m.UpsertUser(ctx, first))

	again := &models.User{Email: "ops@acme.test", CompanyName: "Acme Trading", DID: "did:web:2.veritrace.eu", AuthMethod: "qualified-certificate"}
	require.NoError(t, m.UpsertUser(ctx, again))

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "did:web:1.veritrace.eu", again.DID)
	assert.Equal(t, "Acme Trading", again.CompanyName)

	stored, err := m.User(ctx, first.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "qualified-certificate", stored.AuthMethod)

	_, err = m.User(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDeclarationsAreScopedAndOrdered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	older := submittedRecord()
	newer := submittedRecord()
	newer.ID = "1735689600500"
	newer.Timestamp = "2025-01-01T00:00:00.500Z"

	require.NoError(t, m.SaveDeclaration(ctx, "alice", older))
	require.NoError(t, m.SaveDeclaration(ctx, "alice", newer))
	require.NoError(t, m.SaveDeclaration(ctx, "bob", submittedRecord()))

	recs, err := m.Declarations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, newer.ID, recs[0].ID)
	assert.Equal(t, older, recs[1])

	latest, err := ForOwner(m, "alice").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	_, err = m.Declaration(ctx, "carol", older.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ForOwner(m, "carol").Load(ctx)
	assert.ErrorIs(t, err, declaration.ErrNoRecord)
}

func TestMemoryWorkflowSubmitPersists(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	w := declaration.New(declaration.WithStore(ForOwner(m, "alice")))
	w.SetField(declaration.FieldProductName, "Natural Rubber")
	w.GoTo(declaration.StepReview)
	rec, err := w.Submit(ctx)
	require.NoError(t, err)

	stored, err := m.Declaration(ctx, "alice", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestWorkflowSubmitSavesCertificateWithDeclaration(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	issuedAt := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

	w := declaration.New(declaration.WithStore(ForOwner(m, "alice", IssueAt(func() time.Time { return issuedAt }))))
	w.SetField(declaration.FieldProductName, "Natural Rubber")
	w.GoTo(declaration.StepReview)
	rec, err := w.Submit(ctx)
	require.NoError(t, err)

	cert, err := m.Certificate(ctx, "alice", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, cert.DeclarationID)
	assert.Equal(t, issuedAt, cert.IssuedDate)

	issued, err := m.Issued(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, rec, issued[0].Declaration)
}

func TestMemoryCertificates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	rec := submittedRecord()
	require.NoError(t, m.SaveDeclaration(ctx, "alice", rec))

	cert, err := certificate.Issue(rec, time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, m.SaveCertificate(ctx, "alice", cert))
	require.NoError(t, m.SaveCertificate(ctx, "alice", cert))

	got, err := m.Certificate(ctx, "alice", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, cert, got)

	_, err = m.Certificate(ctx, "bob", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	issued, err := m.Issued(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, rec, issued[0].Declaration)

	none, err := m.Issued(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
