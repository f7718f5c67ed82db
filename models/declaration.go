package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"p9e.in/veritrace/pkg/declaration"
)

// Declaration is a submitted due diligence statement. ID is the
// millisecond id stamped at submission.
type Declaration struct {
	ID          string   `gorm:"size:32;primaryKey"`
	OwnerID     string   `gorm:"size:64;index;not null"`
	SubmittedAt JSONTime `gorm:"type:timestamptz;not null"`
	Status      string   `gorm:"size:20;not null"`

	ProductType        string `gorm:"size:50"`
	ProductName        string `gorm:"size:255"`
	ProductDescription string `gorm:"type:text"`
	HSCode             string `gorm:"column:hs_code;size:20"`
	Quantity           string `gorm:"size:50"`
	Unit               string `gorm:"size:20"`

	SupplierName           string         `gorm:"size:255"`
	SupplierAddress        string         `gorm:"type:text"`
	SupplierContact        string         `gorm:"size:255"`
	SupplierTaxID          string         `gorm:"column:supplier_tax_id;size:100"`
	SupplierCertifications pq.StringArray `gorm:"type:text[]"`

	FarmLocation         string `gorm:"size:255"`
	Coordinates          string `gorm:"size:100"`
	LandOwnership        string `gorm:"size:50"`
	ForestRiskAssessment string `gorm:"type:text"`

	// Documents holds []declaration.DocumentFile metadata; bytes live in the blob store.
	Documents datatypes.JSON `gorm:"type:jsonb"`

	RiskMitigation  string `gorm:"type:text"`
	AdditionalNotes string `gorm:"type:text"`

	CreatedAt time.Time
}

// DeclarationFromRecord maps a submitted record onto a row.
func DeclarationFromRecord(owner string, rec declaration.Record) (Declaration, error) {
	if rec.ID == "" {
		return Declaration{}, fmt.Errorf("declaration has not been submitted")
	}
	submitted, err := ParseJSONTime(rec.Timestamp)
	if err != nil {
		return Declaration{}, err
	}
	docs, err := json.Marshal(rec.Documents)
	if err != nil {
		return Declaration{}, fmt.Errorf("encode documents: %w", err)
	}

	return Declaration{
		ID:                     rec.ID,
		OwnerID:                owner,
		SubmittedAt:            submitted,
		Status:                 rec.Status,
		ProductType:            rec.ProductType,
		ProductName:            rec.ProductName,
		ProductDescription:     rec.ProductDescription,
		HSCode:                 rec.HSCode,
		Quantity:               rec.Quantity,
		Unit:                   rec.Unit,
		SupplierName:           rec.SupplierName,
		SupplierAddress:        rec.SupplierAddress,
		SupplierContact:        rec.SupplierContact,
		SupplierTaxID:          rec.SupplierTaxID,
		SupplierCertifications: pq.StringArray(append([]string{}, rec.SupplierCertifications...)),
		FarmLocation:           rec.FarmLocation,
		Coordinates:            rec.Coordinates,
		LandOwnership:          rec.LandOwnership,
		ForestRiskAssessment:   rec.ForestRiskAssessment,
		Documents:              datatypes.JSON(docs),
		RiskMitigation:         rec.RiskMitigation,
		AdditionalNotes:        rec.AdditionalNotes,
	}, nil
}

// Record maps the row back to the workflow's record shape.
func (d Declaration) Record() (declaration.Record, error) {
	rec := declaration.NewRecord()
	rec.ID = d.ID
	rec.Timestamp = d.SubmittedAt.String()
	rec.Status = d.Status
	rec.ProductType = d.ProductType
	rec.ProductName = d.ProductName
	rec.ProductDescription = d.ProductDescription
	rec.HSCode = d.HSCode
	rec.Quantity = d.Quantity
	rec.Unit = d.Unit
	rec.SupplierName = d.SupplierName
	rec.SupplierAddress = d.SupplierAddress
	rec.SupplierContact = d.SupplierContact
	rec.SupplierTaxID = d.SupplierTaxID
	rec.SupplierCertifications = append(rec.SupplierCertifications, d.SupplierCertifications...)
	rec.FarmLocation = d.FarmLocation
	rec.Coordinates = d.Coordinates
	rec.LandOwnership = d.LandOwnership
	rec.ForestRiskAssessment = d.ForestRiskAssessment
	rec.RiskMitigation = d.RiskMitigation
	rec.AdditionalNotes = d.AdditionalNotes

	if len(d.Documents) > 0 {
		if err := json.Unmarshal(d.Documents, &rec.Documents); err != nil {
			return declaration.Record{}, fmt.Errorf("decode documents of %s: %w", d.ID, err)
		}
		if rec.Documents == nil {
			rec.Documents = []declaration.DocumentFile{}
		}
	}
	return rec, nil
}
