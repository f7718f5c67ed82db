// Package assistant answers compliance questions and proposes autofill
// values from the product catalog. Answers are keyword-routed canned text;
// nothing here calls a model.
package assistant

import (
	"fmt"
	"strings"

	"p9e.in/veritrace/pkg/catalog"
	"p9e.in/veritrace/pkg/declaration"
)

// State mirrors the assistant panel's lifecycle. Ask completes synchronously
// so a reply is always in StateResponding.
type State string

const (
	StateIdle       State = "idle"
	StateThinking   State = "thinking"
	StateResponding State = "responding"
)

// Reply is one answer.
type Reply struct {
	State    State  `json:"state"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const (
	genericHSCode        = "HS codes classify products for international trade. They help determine which EUDR regulations apply to your product."
	genericCertification = "Certifications help demonstrate compliance with sustainability standards and reduce supply chain risks."
	genericRiskWithType  = "Conduct thorough due diligence on your supply chain to identify and mitigate deforestation risks."
	genericRisk          = "EUDR requires companies to ensure their products are not linked to deforestation after December 31, 2020."
	defaultAnswer        = "I'm here to help with your EUDR declaration. Ask about product codes, certifications, risk assessment, or any compliance questions."
)

var stepHints = map[declaration.Step]string{
	declaration.StepProduct:     "For product information, provide accurate product names, HS codes, and quantities. I can help suggest appropriate HS codes based on your product type.",
	declaration.StepSupplier:    "Supplier information should include complete business details and relevant certifications. I can suggest appropriate certifications for your product type.",
	declaration.StepGeolocation: "Geolocation data must include precise GPS coordinates of production areas. This is crucial for deforestation risk assessment.",
	declaration.StepDocuments:   "Upload supporting documents like certificates, invoices, and traceability records to strengthen your declaration.",
}

// Assistant answers against one catalog.
type Assistant struct {
	catalog *catalog.Catalog
}

// New returns an assistant over c, or over the embedded catalog when c is nil.
func New(c *catalog.Catalog) *Assistant {
	if c == nil {
		c = catalog.Default()
	}
	return &Assistant{catalog: c}
}

// Ask routes question by keyword. A blank question yields an idle reply
// with no answer.
func (a *Assistant) Ask(question string, step declaration.Step, rec declaration.Record) Reply {
	if strings.TrimSpace(question) == "" {
		return Reply{State: StateIdle, Question: question}
	}
	return Reply{
		State:    StateResponding,
		Question: question,
		Answer:   a.answer(strings.ToLower(question), step, rec.ProductType),
	}
}

func (a *Assistant) answer(q string, step declaration.Step, productType string) string {
	switch {
	case strings.Contains(q, "hs code") || strings.Contains(q, "harmonized"):
		if productType != "" {
			if s := a.catalog.SuggestionsForType(productType); len(s) > 0 {
				codes := make([]string, len(s))
				for i, p := range s {
					codes[i] = p.HSCode
				}
				return fmt.Sprintf("For %s products, common HS codes include: %s. The most common is %s for %s.",
					productType, strings.Join(codes, ", "), s[0].HSCode, s[0].ProductName)
			}
		}
		return genericHSCode

	case strings.Contains(q, "certification") || strings.Contains(q, "certificate"):
		if productType != "" {
			certs := a.catalog.CertificationSuggestions(productType)
			if len(certs) > 4 {
				certs = certs[:4]
			}
			return fmt.Sprintf("For %s products, recommended certifications include: %s. These demonstrate sustainable sourcing practices.",
				productType, strings.Join(certs, ", "))
		}
		return genericCertification

	case strings.Contains(q, "risk") || strings.Contains(q, "deforestation"):
		if productType != "" {
			if summary := a.catalog.RiskAssessmentSummary(productType); summary != "" {
				return summary
			}
			return genericRiskWithType
		}
		return genericRisk
	}

	if hint, ok := stepHints[step]; ok {
		return hint
	}
	return defaultAnswer
}
