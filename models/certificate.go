package models

import (
	"time"

	"p9e.in/veritrace/pkg/certificate"
)

// Certificate is the compliance certificate issued for one declaration. The
// VT- id only carries six digits of the issue time, so rows are keyed by
// the declaration they certify.
type Certificate struct {
	DeclarationID   string    `gorm:"size:32;primaryKey"`
	ID              string    `gorm:"size:16;index;not null"`
	OwnerID         string    `gorm:"size:64;index;not null"`
	EUReference     string    `gorm:"column:eu_reference;size:32;not null"`
	BlockchainHash  string    `gorm:"size:66;not null"`
	IssuedDate      time.Time `gorm:"not null"`
	ExpiryDate      time.Time `gorm:"not null"`
	Status          string    `gorm:"size:20;not null"`
	ComplianceScore int
	CreatedAt       time.Time
}

func CertificateFromDomain(owner string, c certificate.Certificate) Certificate {
	return Certificate{
		ID:              c.ID,
		DeclarationID:   c.DeclarationID,
		OwnerID:         owner,
		EUReference:     c.EUReference,
		BlockchainHash:  c.BlockchainHash,
		IssuedDate:      c.IssuedDate,
		ExpiryDate:      c.ExpiryDate,
		Status:          string(c.Status),
		ComplianceScore: c.ComplianceScore,
	}
}

func (c Certificate) Domain() certificate.Certificate {
	return certificate.Certificate{
		ID:              c.ID,
		DeclarationID:   c.DeclarationID,
		EUReference:     c.EUReference,
		BlockchainHash:  c.BlockchainHash,
		IssuedDate:      c.IssuedDate.UTC(),
		ExpiryDate:      c.ExpiryDate.UTC(),
		Status:          certificate.Status(c.Status),
		ComplianceScore: c.ComplianceScore,
	}
}
