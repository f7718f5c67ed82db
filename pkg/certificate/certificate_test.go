package certificate

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"p9e.in/veritrace/pkg/declaration"
)

func submitted(id, product, supplier string, certs ...string) declaration.Record {
	rec := declaration.NewRecord()
	rec.ID = id
	rec.Status = declaration.StatusPending
	rec.ProductName = product
	rec.SupplierName = supplier
	rec.SupplierCertifications = append(rec.SupplierCertifications, certs...)
	return rec
}

func TestIssue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := submitted("1748779200123", "Cocoa Beans", "Ghana Farmers Union", "UTZ")

	cert, err := Issue(rec, now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cert.ID, "VT-"))
	assert.Len(t, cert.ID, 9)
	assert.Equal(t, "1748779200123", cert.DeclarationID)
	assert.Equal(t, "EU-DDS-2025-200123", cert.EUReference)
	assert.Equal(t, now.Add(365*24*time.Hour), cert.ExpiryDate)
	assert.Equal(t, StatusValid, cert.Status)
	assert.Equal(t, 100, cert.ComplianceScore)
	assert.Len(t, cert.BlockchainHash, 66)
	assert.True(t, strings.HasPrefix(cert.BlockchainHash, "0x"))
}

func TestIssueRequiresSubmittedRecord(t *testing.T) {
	_, err := Issue(declaration.NewRecord(), time.Now())
	assert.Error(t, err)
}

func TestFingerprintIsContentDerived(t *testing.T) {
	a := submitted("1", "Soybeans", "Cerrado Grain")
	b := submitted("1", "Soybeans", "Cerrado Grain")
	ha, err := Fingerprint(a)
	require.NoError(t, err)
	hb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Quantity = "20"
	hc, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0x1234...abcd", ShortHash("0x1234567890abcd"))
	assert.Equal(t, "0x12", ShortHash("0x12"))
}

func TestStatusAt(t *testing.T) {
	expiry := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		stored Status
		now    time.Time
		want   Status
	}{
		{"well before expiry", StatusValid, expiry.AddDate(0, -6, 0), StatusValid},
		{"inside window", StatusValid, expiry.Add(-10 * 24 * time.Hour), StatusExpiringSoon},
		{"window edge", StatusValid, expiry.Add(-ExpiringWindow), StatusExpiringSoon},
		{"at expiry", StatusValid, expiry, StatusExpired},
		{"after expiry", StatusValid, expiry.AddDate(0, 1, 0), StatusExpired},
		{"revoked stays revoked", StatusRevoked, expiry.AddDate(-1, 0, 0), StatusRevoked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusAt(tt.stored, expiry, tt.now))
		})
	}
}

func issuedAt(t *testing.T, rec declaration.Record, at time.Time) Issued {
	t.Helper()
	c, err := Issue(rec, at)
	require.NoError(t, err)
	return Issued{Certificate: c, Declaration: rec}
}

func TestBuildWallet(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	holder := Holder{CompanyName: "Acme Trading", DID: "did:web:1736467200000.veritrace.eu", Since: jan}
	issued := []Issued{
		issuedAt(t, submitted("100001", "Arabica Coffee Beans", "Amazon Forest Co-op", "UTZ", "Organic", "Fair Trade"), jan),
		issuedAt(t, submitted("100002", "Cocoa Beans", "Ghana Farmers Union", "UTZ"), feb),
		issuedAt(t, submitted("100003", "Robusta Coffee Beans", "Amazon Forest Co-op"), feb.Add(time.Hour)),
	}

	creds := BuildWallet(holder, issued, now)
	require.Len(t, creds, 6)

	assert.Equal(t, TypeDIDIdentity, creds[0].Type)
	assert.Equal(t, "Acme Trading", creds[0].CompanyName)
	assert.Equal(t, "Enhanced", creds[0].VerificationLevel)

	// certificates newest first
	assert.Equal(t, "Robusta Coffee Beans", creds[1].Product)
	assert.Equal(t, "Cocoa Beans", creds[2].Product)
	assert.Equal(t, "Arabica Coffee Beans", creds[3].Product)
	for _, c := range creds[1:4] {
		assert.Equal(t, TypeEUDRCertificate, c.Type)
		assert.Equal(t, StatusValid, c.Status)
	}

	assert.Equal(t, TypeSupplierCertificate, creds[4].Type)
	assert.Equal(t, "Ghana Farmers Union", creds[4].Supplier)
	assert.Equal(t, "Bronze", creds[4].CertificationLevel)
	assert.Equal(t, "Amazon Forest Co-op", creds[5].Supplier)
	assert.Equal(t, "Gold", creds[5].CertificationLevel)
	assert.Equal(t, jan, creds[5].IssuedDate)
}

func TestBuildWalletEmpty(t *testing.T) {
	creds := BuildWallet(Holder{}, nil, time.Now())
	assert.NotNil(t, creds)
	assert.Empty(t, creds)
}

func TestFilter(t *testing.T) {
	creds := []Credential{
		{ID: "1", Type: TypeEUDRCertificate, Title: "EUDR Compliance Certificate", Issuer: "VeriTrace Platform", Product: "Cocoa Beans"},
		{ID: "2", Type: TypeDIDIdentity, Title: "Digital Identity Credential", Issuer: "VeriTrace Identity Provider"},
		{ID: "3", Type: TypeSupplierCertificate, Title: "Supplier Verification Certificate", Issuer: "Global Supply Chain Authority"},
	}
	ids := func(cs []Credential) []string {
		out := []string{}
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids(Filter(creds, "", "all")))
	assert.Equal(t, []string{"1"}, ids(Filter(creds, "cocoa", "")))
	assert.Equal(t, []string{"1", "2"}, ids(Filter(creds, "VERITRACE", "all")))
	assert.Equal(t, []string{"2"}, ids(Filter(creds, "veritrace", string(TypeDIDIdentity))))
	assert.Equal(t, []string{}, ids(Filter(creds, "banana", "all")))
}

func TestWorkbook(t *testing.T) {
	generated := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	creds := []Credential{{
		ID:          "VC-VT-123456",
		Type:        TypeEUDRCertificate,
		Title:       "EUDR Compliance Certificate",
		Issuer:      "VeriTrace Platform",
		IssuedDate:  generated,
		ExpiryDate:  generated.Add(Validity),
		Status:      StatusValid,
		Product:     "Natural Rubber",
		EUReference: "EU-DDS-2025-000001",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, "Acme Trading", creds, generated))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{walletSheet}, f.GetSheetList())
	get := func(cell string) string {
		v, err := f.GetCellValue(walletSheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Credential Wallet - Acme Trading", get("A1"))
	assert.Equal(t, "Generated: 2025-03-01 08:30:00", get("A2"))
	assert.Equal(t, "Credential ID", get("A4"))
	assert.Equal(t, "VC-VT-123456", get("A5"))
	assert.Equal(t, "2026-03-01", get("F5"))
	assert.Equal(t, "Natural Rubber", get("H5"))
}
