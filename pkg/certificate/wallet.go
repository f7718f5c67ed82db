package certificate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"p9e.in/veritrace/pkg/declaration"
)

// Status of a credential.
type Status string

const (
	StatusValid        Status = "valid"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
	StatusRevoked      Status = "revoked"
)

// CredentialType classifies wallet entries.
type CredentialType string

const (
	TypeEUDRCertificate     CredentialType = "EUDR_Certificate"
	TypeDIDIdentity         CredentialType = "DID_Identity"
	TypeSupplierCertificate CredentialType = "Supplier_Certificate"
)

// Credential is one wallet entry.
type Credential struct {
	ID                 string         `json:"id"`
	Type               CredentialType `json:"type"`
	Title              string         `json:"title"`
	Issuer             string         `json:"issuer"`
	IssuedDate         time.Time      `json:"issuedDate"`
	ExpiryDate         time.Time      `json:"expiryDate"`
	Status             Status         `json:"status"`
	Product            string         `json:"product,omitempty"`
	Supplier           string         `json:"supplier,omitempty"`
	BlockchainHash     string         `json:"blockchainHash,omitempty"`
	EUReference        string         `json:"euReference,omitempty"`
	CompanyName        string         `json:"companyName,omitempty"`
	DID                string         `json:"did,omitempty"`
	VerificationLevel  string         `json:"verificationLevel,omitempty"`
	CertificationLevel string         `json:"certificationLevel,omitempty"`
}

// Holder is the wallet owner's identity.
type Holder struct {
	CompanyName string
	DID         string
	Since       time.Time
}

// Issued pairs a certificate with the declaration it was issued for.
type Issued struct {
	Certificate Certificate
	Declaration declaration.Record
}

// BuildWallet assembles the holder's credentials: the identity credential,
// one EUDR certificate per issued certificate (newest first) and one
// supplier credential per certified supplier.
func BuildWallet(holder Holder, issued []Issued, now time.Time) []Credential {
	out := []Credential{}

	if holder.DID != "" {
		out = append(out, Credential{
			ID:                "VC-ID-" + lastDigits(holder.DID, 6),
			Type:              TypeDIDIdentity,
			Title:             "Digital Identity Credential",
			Issuer:            "VeriTrace Identity Provider",
			IssuedDate:        holder.Since,
			ExpiryDate:        holder.Since.Add(Validity),
			Status:            statusAt(StatusValid, holder.Since.Add(Validity), now),
			CompanyName:       holder.CompanyName,
			DID:               holder.DID,
			VerificationLevel: "Enhanced",
		})
	}

	sorted := append([]Issued(nil), issued...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Certificate.IssuedDate.After(sorted[j].Certificate.IssuedDate)
	})

	suppliers := map[string]int{}
	var supplierOrder []string
	for _, it := range sorted {
		c, rec := it.Certificate, it.Declaration
		out = append(out, Credential{
			ID:             "VC-" + c.ID,
			Type:           TypeEUDRCertificate,
			Title:          "EUDR Compliance Certificate",
			Issuer:         "VeriTrace Platform",
			IssuedDate:     c.IssuedDate,
			ExpiryDate:     c.ExpiryDate,
			Status:         c.StatusAt(now),
			Product:        rec.ProductName,
			Supplier:       rec.SupplierName,
			BlockchainHash: c.BlockchainHash,
			EUReference:    c.EUReference,
		})

		if rec.SupplierName == "" || len(rec.SupplierCertifications) == 0 {
			continue
		}
		if _, seen := suppliers[rec.SupplierName]; !seen {
			supplierOrder = append(supplierOrder, rec.SupplierName)
		}
		if n := len(rec.SupplierCertifications); n > suppliers[rec.SupplierName] {
			suppliers[rec.SupplierName] = n
		}
	}

	for i, name := range supplierOrder {
		var since time.Time
		for _, it := range sorted {
			if it.Declaration.SupplierName == name {
				since = it.Certificate.IssuedDate
			}
		}
		out = append(out, Credential{
			ID:                 fmt.Sprintf("VC-SUP-%03d", i+1),
			Type:               TypeSupplierCertificate,
			Title:              "Supplier Verification Certificate",
			Issuer:             "Global Supply Chain Authority",
			IssuedDate:         since,
			ExpiryDate:         since.Add(Validity),
			Status:             statusAt(StatusValid, since.Add(Validity), now),
			Supplier:           name,
			CertificationLevel: certificationLevel(suppliers[name]),
		})
	}
	return out
}

func certificationLevel(certs int) string {
	switch {
	case certs >= 3:
		return "Gold"
	case certs == 2:
		return "Silver"
	default:
		return "Bronze"
	}
}

// Filter keeps credentials matching search (title, issuer or product,
// ignoring case) and credType ("" or "all" matches every type).
func Filter(creds []Credential, search, credType string) []Credential {
	q := strings.ToLower(search)
	out := []Credential{}
	for _, c := range creds {
		matchesSearch := strings.Contains(strings.ToLower(c.Title), q) ||
			strings.Contains(strings.ToLower(c.Issuer), q) ||
			(c.Product != "" && strings.Contains(strings.ToLower(c.Product), q))
		matchesType := credType == "" || credType == "all" || string(c.Type) == credType
		if matchesSearch && matchesType {
			out = append(out, c)
		}
	}
	return out
}

func statusAt(stored Status, expiry, now time.Time) Status {
	switch {
	case stored == StatusRevoked:
		return StatusRevoked
	case !now.Before(expiry):
		return StatusExpired
	case expiry.Sub(now) <= ExpiringWindow:
		return StatusExpiringSoon
	}
	return StatusValid
}
