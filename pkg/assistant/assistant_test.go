package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p9e.in/veritrace/pkg/declaration"
)

func recordFor(productType, productName string) declaration.Record {
	rec := declaration.NewRecord()
	rec.ProductType = productType
	rec.ProductName = productName
	return rec
}

func TestAsk(t *testing.T) {
	a := New(nil)
	tests := []struct {
		name     string
		question string
		step     declaration.Step
		rec      declaration.Record
		want     string
	}{
		{
			name:     "hs code with product type",
			question: "Which HS code should I use?",
			step:     declaration.StepProduct,
			rec:      recordFor("coffee", ""),
			want:     "For coffee products, common HS codes include: 090111, 090112. The most common is 090111 for Arabica Coffee Beans.",
		},
		{
			name:     "hs code without product type",
			question: "what is a harmonized code",
			rec:      recordFor("", ""),
			want:     genericHSCode,
		},
		{
			name:     "hs code for unknown type",
			question: "hs code?",
			rec:      recordFor("tea", ""),
			want:     genericHSCode,
		},
		{
			name:     "certifications are capped at four",
			question: "Which certifications apply?",
			rec:      recordFor("wood", ""),
			want:     "For wood products, recommended certifications include: FSC, PEFC, FLEGT, CITES. These demonstrate sustainable sourcing practices.",
		},
		{
			name:     "certification without type",
			question: "do I need a certificate",
			rec:      recordFor("", ""),
			want:     genericCertification,
		},
		{
			name:     "risk for unknown type",
			question: "deforestation risk?",
			rec:      recordFor("tea", ""),
			want:     genericRiskWithType,
		},
		{
			name:     "risk without type",
			question: "What about risk",
			rec:      recordFor("", ""),
			want:     genericRisk,
		},
		{
			name:     "step hint",
			question: "help",
			step:     declaration.StepGeolocation,
			rec:      recordFor("", ""),
			want:     stepHints[declaration.StepGeolocation],
		},
		{
			name:     "review step falls back to default",
			question: "help",
			step:     declaration.StepReview,
			rec:      recordFor("", ""),
			want:     defaultAnswer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := a.Ask(tt.question, tt.step, tt.rec)
			assert.Equal(t, StateResponding, reply.State)
			assert.Equal(t, tt.want, reply.Answer)
		})
	}
}

func TestAskRiskUsesCatalogSummary(t *testing.T) {
	reply := New(nil).Ask("Tell me about deforestation", declaration.StepGeolocation, recordFor("cocoa", ""))
	assert.True(t, strings.HasPrefix(reply.Answer, "Risk Level: High"))
}

func TestAskBlankQuestion(t *testing.T) {
	reply := New(nil).Ask("   ", declaration.StepProduct, recordFor("coffee", ""))
	assert.Equal(t, StateIdle, reply.State)
	assert.Empty(t, reply.Answer)
}

func TestAutofill(t *testing.T) {
	a := New(nil)
	tests := []struct {
		kind      Kind
		rec       declaration.Record
		wantField declaration.Field
		wantValue string
		wantOK    bool
	}{
		{KindHSCode, recordFor("palm-oil", ""), declaration.FieldHSCode, "151110", true},
		{KindProductName, recordFor("Soy", ""), declaration.FieldProductName, "Soybeans", true},
		{KindDescription, recordFor("cocoa", "paste"), declaration.FieldProductDescription, "Cocoa paste (liquor), not defatted", true},
		{KindDescription, recordFor("cocoa", ""), "", "", false},
		{KindUnit, recordFor("rubber", ""), declaration.FieldUnit, "kg", true},
		{KindHSCode, recordFor("", ""), "", "", false},
		{KindHSCode, recordFor("tea", ""), "", "", false},
		{"colour", recordFor("coffee", ""), "", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.rec.ProductType, func(t *testing.T) {
			s, ok := a.Autofill(tt.kind, tt.rec)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantField, s.Field)
			assert.Equal(t, tt.wantValue, s.Value)
		})
	}

	s, ok := a.Autofill(KindRiskAssessment, recordFor("beef", ""))
	require.True(t, ok)
	assert.Equal(t, declaration.FieldForestRiskAssessment, s.Field)
	assert.Contains(t, s.Value, "• Illegal cattle ranching")
}

func TestQuickActions(t *testing.T) {
	a := New(nil)
	rec := recordFor("coffee", "")
	assert.Equal(t, []Kind{KindHSCode, KindProductName, KindUnit}, a.QuickActions(declaration.StepProduct, rec))

	rec.ProductName = "Arabica"
	rec.HSCode = "090111"
	assert.Equal(t, []Kind{KindDescription, KindUnit}, a.QuickActions(declaration.StepProduct, rec))

	assert.Equal(t, []Kind{KindRiskAssessment}, a.QuickActions(declaration.StepGeolocation, rec))
	assert.Empty(t, a.QuickActions(declaration.StepSupplier, rec))
}

func TestValidKind(t *testing.T) {
	assert.True(t, ValidKind("unit"))
	assert.False(t, ValidKind("Unit"))
}
