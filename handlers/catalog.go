package handlers

import (
	"net/http"
	"strings"
)

// ListProducts returns the catalog entries of ?type=, or every entry when
// the type is omitted.
func (a *API) ListProducts(w http.ResponseWriter, r *http.Request) {
	productType := strings.TrimSpace(r.URL.Query().Get("type"))
	if productType == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"types":    a.catalog.ProductTypes(),
			"products": a.catalog.Products(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":     productType,
		"products": a.catalog.SuggestionsForType(productType),
	})
}

func (a *API) HSCodes(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        name,
		"suggestions": a.catalog.HSCodeSuggestions(name),
	})
}

func (a *API) Descriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":        q.Get("type"),
		"name":        q.Get("name"),
		"suggestions": a.catalog.DescriptionSuggestions(q.Get("type"), q.Get("name")),
	})
}

func (a *API) Certifications(w http.ResponseWriter, r *http.Request) {
	productType := r.URL.Query().Get("type")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":        productType,
		"suggestions": a.catalog.CertificationSuggestions(productType),
	})
}

func (a *API) Units(w http.ResponseWriter, r *http.Request) {
	productType := r.URL.Query().Get("type")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":        productType,
		"suggestions": a.catalog.UnitSuggestions(productType),
	})
}

func (a *API) RiskAssessment(w http.ResponseWriter, r *http.Request) {
	productType := r.URL.Query().Get("type")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":    productType,
		"summary": a.catalog.RiskAssessmentSummary(productType),
	})
}
