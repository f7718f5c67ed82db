package assistant

import "p9e.in/veritrace/pkg/declaration"

// Kind selects which field an autofill suggestion targets.
type Kind string

const (
	KindHSCode         Kind = "hsCode"
	KindProductName    Kind = "productName"
	KindDescription    Kind = "description"
	KindUnit           Kind = "unit"
	KindRiskAssessment Kind = "riskAssessment"
)

// Kinds lists the supported autofill kinds.
var Kinds = []Kind{KindHSCode, KindProductName, KindDescription, KindUnit, KindRiskAssessment}

// Suggestion is a proposed value for one record field.
type Suggestion struct {
	Field declaration.Field `json:"field"`
	Value string            `json:"value"`
}

// Autofill proposes the first catalog suggestion for kind. ok is false when
// the record lacks the inputs the kind needs or the catalog has nothing.
func (a *Assistant) Autofill(kind Kind, rec declaration.Record) (Suggestion, bool) {
	productType := rec.ProductType
	if productType == "" {
		return Suggestion{}, false
	}

	switch kind {
	case KindHSCode:
		if s := a.catalog.SuggestionsForType(productType); len(s) > 0 {
			return Suggestion{Field: declaration.FieldHSCode, Value: s[0].HSCode}, true
		}
	case KindProductName:
		if s := a.catalog.SuggestionsForType(productType); len(s) > 0 {
			return Suggestion{Field: declaration.FieldProductName, Value: s[0].ProductName}, true
		}
	case KindDescription:
		if rec.ProductName == "" {
			return Suggestion{}, false
		}
		if d := a.catalog.DescriptionSuggestions(productType, rec.ProductName); len(d) > 0 {
			return Suggestion{Field: declaration.FieldProductDescription, Value: d[0]}, true
		}
	case KindUnit:
		if u := a.catalog.UnitSuggestions(productType); len(u) > 0 {
			return Suggestion{Field: declaration.FieldUnit, Value: u[0]}, true
		}
	case KindRiskAssessment:
		if r := a.catalog.RiskAssessmentSummary(productType); r != "" {
			return Suggestion{Field: declaration.FieldForestRiskAssessment, Value: r}, true
		}
	}
	return Suggestion{}, false
}

// QuickActions lists the autofill kinds worth offering on step for rec:
// the ones whose target field is still empty and that would produce a value.
func (a *Assistant) QuickActions(step declaration.Step, rec declaration.Record) []Kind {
	var candidates []Kind
	switch step {
	case declaration.StepProduct:
		candidates = []Kind{KindHSCode, KindProductName, KindDescription, KindUnit}
	case declaration.StepGeolocation:
		candidates = []Kind{KindRiskAssessment}
	}

	var out []Kind
	for _, k := range candidates {
		s, ok := a.Autofill(k, rec)
		if !ok {
			continue
		}
		if current, _ := rec.Get(s.Field); current == "" {
			out = append(out, k)
		}
	}
	return out
}

// ValidKind reports whether k names a supported autofill.
func ValidKind(k string) bool {
	for _, kind := range Kinds {
		if string(kind) == k {
			return true
		}
	}
	return false
}
