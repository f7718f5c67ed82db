package catalog

import (
	"fmt"
	"strings"
)

// SuggestionsForType returns every entry whose product type equals
// productType, ignoring case, in catalog order.
func (c *Catalog) SuggestionsForType(productType string) []ProductMapping {
	matches := c.byType(productType)
	out := make([]ProductMapping, 0, len(matches))
	for _, p := range matches {
		out = append(out, p.clone())
	}
	return out
}

// HSCodeSuggestions matches productName against every product name in both
// directions and returns the HS codes of all hits. Duplicates are kept.
func (c *Catalog) HSCodeSuggestions(productName string) []string {
	query := strings.ToLower(productName)
	codes := []string{}
	for _, p := range c.products {
		name := strings.ToLower(p.ProductName)
		if strings.Contains(name, query) || strings.Contains(query, name) {
			codes = append(codes, p.HSCode)
		}
	}
	return codes
}

// DescriptionSuggestions returns the description templates of the first
// entry of productType whose name contains productName.
func (c *Catalog) DescriptionSuggestions(productType, productName string) []string {
	query := strings.ToLower(productName)
	for _, p := range c.byType(productType) {
		if strings.Contains(strings.ToLower(p.ProductName), query) {
			return append([]string{}, p.CommonDescriptions...)
		}
	}
	return []string{}
}

// CertificationSuggestions is the de-duplicated union of typical
// certifications across all entries of productType.
func (c *Catalog) CertificationSuggestions(productType string) []string {
	certs := []string{}
	for _, p := range c.byType(productType) {
		certs = appendUnique(certs, p.TypicalCertifications...)
	}
	return certs
}

// UnitSuggestions is the de-duplicated union of typical units across all
// entries of productType.
func (c *Catalog) UnitSuggestions(productType string) []string {
	units := []string{}
	for _, p := range c.byType(productType) {
		units = appendUnique(units, p.TypicalUnits...)
	}
	return units
}

// RiskAssessmentSummary renders a short risk report for productType, or ""
// when the type is unknown. The headline level comes from the first entry.
func (c *Catalog) RiskAssessmentSummary(productType string) string {
	matches := c.byType(productType)
	if len(matches) == 0 {
		return ""
	}

	var factors []string
	for _, p := range matches {
		factors = appendUnique(factors, p.RiskFactors...)
	}
	level := matches[0].RiskLevel

	var b strings.Builder
	fmt.Fprintf(&b, "Risk Level: %s\n\nKey Risk Factors:\n", level)
	for i, f := range factors {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• " + f)
	}
	fmt.Fprintf(&b, "\n\nRecommendation: Implement appropriate due diligence measures based on the %s risk profile of this product category.",
		strings.ToLower(string(level)))
	return b.String()
}

// Package-level shortcuts over the embedded catalog.

func SuggestionsForType(productType string) []ProductMapping {
	return defaultCatalog.SuggestionsForType(productType)
}

func HSCodeSuggestions(productName string) []string {
	return defaultCatalog.HSCodeSuggestions(productName)
}

func DescriptionSuggestions(productType, productName string) []string {
	return defaultCatalog.DescriptionSuggestions(productType, productName)
}

func CertificationSuggestions(productType string) []string {
	return defaultCatalog.CertificationSuggestions(productType)
}

func UnitSuggestions(productType string) []string {
	return defaultCatalog.UnitSuggestions(productType)
}

func RiskAssessmentSummary(productType string) string {
	return defaultCatalog.RiskAssessmentSummary(productType)
}
