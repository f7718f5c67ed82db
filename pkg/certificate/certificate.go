// Package certificate derives the compliance certificate and wallet
// credentials shown to a user after a declaration is submitted.
//
// The "blockchain hash" is a Keccak-256 digest of the submitted record. It
// is not anchored anywhere; it only gives the certificate a stable,
// content-derived fingerprint.
package certificate

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"

	"p9e.in/veritrace/pkg/declaration"
)

const (
	// Validity is how long an issued certificate stays valid.
	Validity = 365 * 24 * time.Hour
	// ExpiringWindow is how close to expiry a credential is flagged.
	ExpiringWindow = 30 * 24 * time.Hour
)

// Certificate is issued for one submitted declaration.
type Certificate struct {
	ID              string    `json:"id"`
	DeclarationID   string    `json:"declarationId"`
	EUReference     string    `json:"euReference"`
	BlockchainHash  string    `json:"blockchainHash"`
	IssuedDate      time.Time `json:"issuedDate"`
	ExpiryDate      time.Time `json:"expiryDate"`
	Status          Status    `json:"status"`
	ComplianceScore int       `json:"complianceScore"`
}

// Issue builds the certificate for a submitted record. The record must
// carry the id stamped at submission.
func Issue(rec declaration.Record, now time.Time) (Certificate, error) {
	if rec.ID == "" {
		return Certificate{}, fmt.Errorf("certificate: declaration has not been submitted")
	}
	hash, err := Fingerprint(rec)
	if err != nil {
		return Certificate{}, err
	}
	issued := now.UTC()
	return Certificate{
		ID:              "VT-" + lastDigits(strconv.FormatInt(issued.UnixMilli(), 10), 6),
		DeclarationID:   rec.ID,
		EUReference:     fmt.Sprintf("EU-DDS-%d-%s", issued.Year(), lastDigits(rec.ID, 6)),
		BlockchainHash:  hash,
		IssuedDate:      issued,
		ExpiryDate:      issued.Add(Validity),
		Status:          StatusValid,
		ComplianceScore: 100,
	}, nil
}

// Fingerprint returns 0x-prefixed Keccak-256 of the record's JSON form.
func Fingerprint(rec declaration.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("certificate: encode record: %w", err)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

// ShortHash abbreviates a hash for display: 0x1234...abcd.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:6] + "..." + hash[len(hash)-4:]
}

// StatusAt is the certificate's status as of now.
func (c Certificate) StatusAt(now time.Time) Status {
	return statusAt(c.Status, c.ExpiryDate, now)
}

func lastDigits(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s[len(s)-n:]
}
