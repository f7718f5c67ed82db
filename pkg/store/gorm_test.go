package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"p9e.in/veritrace/models"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
)

func newMockStore(t *testing.T) (*Gorm, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	return NewGorm(gdb, zap.NewNop()), mock
}

var declarationColumns = []string{
	"id", "owner_id", "submitted_at", "status", "product_type", "product_name",
	"supplier_name", "supplier_certifications", "coordinates", "documents", "created_at",
}

func submittedRecord() declaration.Record {
	rec := declaration.NewRecord()
	rec.ID = "1735689600000"
	rec.Timestamp = "2025-01-01T00:00:00.000Z"
	rec.Status = declaration.StatusPending
	rec.ProductType = "cocoa"
	rec.ProductName = "Cocoa Beans"
	rec.SupplierName = "Ghana Farmers Union"
	rec.SupplierCertifications = []string{"UTZ", "Organic"}
	rec.Coordinates = "5.6,-0.18"
	rec.Documents = []declaration.DocumentFile{{ID: "d1", Name: "permit.pdf", Type: "application/pdf", Size: 1024}}
	return rec
}

func TestGormSaveDeclaration(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "declarations"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveDeclaration(context.Background(), "owner-1", submittedRecord()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSaveUnsubmittedDeclaration(t *testing.T) {
	s, mock := newMockStore(t)
	assert.Error(t, s.SaveDeclaration(context.Background(), "owner-1", declaration.NewRecord()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLatestDeclaration(t *testing.T) {
	s, mock := newMockStore(t)
	submitted := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(declarationColumns).AddRow(
		"1735689600000", "owner-1", submitted, "pending", "cocoa", "Cocoa Beans",
		"Ghana Farmers Union", "{UTZ,Organic}", "5.6,-0.18",
		[]byte(`[{"id":"d1","name":"permit.pdf","type":"application/pdf","size":1024}]`), submitted,
	)
	mock.ExpectQuery(`SELECT \* FROM "declarations" WHERE owner_id = \$1 ORDER BY submitted_at DESC LIMIT`).
		WillReturnRows(rows)

	rec, err := s.LatestDeclaration(context.Background(), "owner-1")
	require.NoError(t, err)

	want := submittedRecord()
	assert.Equal(t, want.ID, rec.ID)
	assert.Equal(t, want.Timestamp, rec.Timestamp)
	assert.Equal(t, want.SupplierCertifications, rec.SupplierCertifications)
	assert.Equal(t, want.Documents, rec.Documents)
	assert.Equal(t, want.Coordinates, rec.Coordinates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLatestDeclarationNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "declarations"`).
		WillReturnRows(sqlmock.NewRows(declarationColumns))

	_, err := s.LatestDeclaration(context.Background(), "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`SELECT \* FROM "declarations"`).
		WillReturnRows(sqlmock.NewRows(declarationColumns))
	_, err = ForOwner(s, "owner-1").Load(context.Background())
	assert.ErrorIs(t, err, declaration.ErrNoRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeclarationsEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "declarations" WHERE owner_id = \$1 ORDER BY submitted_at DESC`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows(declarationColumns))

	recs, err := s.Declarations(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSaveCertificateIgnoresConflicts(t *testing.T) {
	s, mock := newMockStore(t)
	cert, err := certificate.Issue(submittedRecord(), time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "certificates" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, s.SaveCertificate(context.Background(), "owner-1", cert))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSaveSubmission(t *testing.T) {
	s, mock := newMockStore(t)
	rec := submittedRecord()
	cert, err := certificate.Issue(rec, time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "declarations"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "certificates" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveSubmission(context.Background(), "owner-1", rec, cert))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSaveSubmissionRollsBackDeclaration(t *testing.T) {
	s, mock := newMockStore(t)
	rec := submittedRecord()
	cert, err := certificate.Issue(rec, time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "declarations"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "certificates"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = s.SaveSubmission(context.Background(), "owner-1", rec, cert)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormIssued(t *testing.T) {
	s, mock := newMockStore(t)
	issued := time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "certificates" WHERE owner_id = \$1 ORDER BY issued_date DESC`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"declaration_id", "id", "owner_id", "eu_reference", "blockchain_hash",
			"issued_date", "expiry_date", "status", "compliance_score",
		}).AddRow(
			"1735689600000", "VT-600001", "owner-1", "EU-DDS-2025-600000", "0xabc",
			issued, issued.Add(certificate.Validity), "valid", 100,
		))
	mock.ExpectQuery(`SELECT \* FROM "declarations" WHERE id IN \(\$1\)`).
		WithArgs("1735689600000").
		WillReturnRows(sqlmock.NewRows(declarationColumns).AddRow(
			"1735689600000", "owner-1", issued, "pending", "cocoa", "Cocoa Beans",
			"Ghana Farmers Union", "{UTZ}", "", []byte(`[]`), issued,
		))

	got, err := s.Issued(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "VT-600001", got[0].Certificate.ID)
	assert.Equal(t, certificate.StatusValid, got[0].Certificate.Status)
	assert.Equal(t, "Cocoa Beans", got[0].Declaration.ProductName)
	assert.Equal(t, []declaration.DocumentFile{}, got[0].Declaration.Documents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpsertUserCreates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	u := &models.User{Email: "ops@acme.test", CompanyName: "Acme", DID: "did:web:1.veritrace.eu", PublicKey: "0x01", AuthMethod: "eudi-wallet"}
	require.NoError(t, s.UpsertUser(context.Background(), u))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", u.ID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRejectsMalformedID(t *testing.T) {
	s, mock := newMockStore(t)
	_, err := s.User(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
