package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"p9e.in/veritrace/middleware"
	"p9e.in/veritrace/pkg/certificate"
)

type certificateView struct {
	certificate.Certificate
	ShortHash   string `json:"shortHash"`
	ProductName string `json:"productName,omitempty"`
	Supplier    string `json:"supplier,omitempty"`
}

func (a *API) viewCertificate(c certificate.Certificate, product, supplier string) certificateView {
	c.Status = c.StatusAt(a.now())
	return certificateView{
		Certificate: c,
		ShortHash:   certificate.ShortHash(c.BlockchainHash),
		ProductName: product,
		Supplier:    supplier,
	}
}

// ListCertificates returns the caller's certificates, newest first, with
// their status evaluated now.
func (a *API) ListCertificates(w http.ResponseWriter, r *http.Request) {
	issued, err := a.repo.Issued(r.Context(), middleware.GetUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]certificateView, 0, len(issued))
	for _, it := range issued {
		out = append(out, a.viewCertificate(it.Certificate, it.Declaration.ProductName, it.Declaration.SupplierName))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) GetCertificate(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r)
	declarationID := mux.Vars(r)["declarationId"]

	c, err := a.repo.Certificate(r.Context(), owner, declarationID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rec, err := a.repo.Declaration(r.Context(), owner, declarationID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"certificate": a.viewCertificate(c, rec.ProductName, rec.SupplierName),
		"declaration": rec,
	})
}

func (a *API) wallet(r *http.Request) (certificate.Holder, []certificate.Credential, error) {
	claims := middleware.GetClaims(r)
	holder := certificate.Holder{CompanyName: claims.CompanyName, DID: claims.DID}
	if u, err := a.repo.User(r.Context(), claims.UserID); err == nil {
		holder.CompanyName = u.CompanyName
		holder.DID = u.DID
		holder.Since = u.CreatedAt.UTC()
	}

	issued, err := a.repo.Issued(r.Context(), claims.UserID)
	if err != nil {
		return certificate.Holder{}, nil, err
	}
	return holder, certificate.BuildWallet(holder, issued, a.now()), nil
}

// Wallet lists the caller's credentials filtered by ?search= and ?type=.
func (a *API) Wallet(w http.ResponseWriter, r *http.Request) {
	holder, creds, err := a.wallet(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	filtered := certificate.Filter(creds, q.Get("search"), q.Get("type"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"holder":      holder.CompanyName,
		"did":         holder.DID,
		"total":       len(creds),
		"credentials": filtered,
	})
}

// ExportWallet downloads the caller's (filtered) credentials as .xlsx.
func (a *API) ExportWallet(w http.ResponseWriter, r *http.Request) {
	holder, creds, err := a.wallet(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	creds = certificate.Filter(creds, q.Get("search"), q.Get("type"))

	now := a.now()
	var buf bytes.Buffer
	if err := certificate.WriteWorkbook(&buf, holder.CompanyName, creds, now); err != nil {
		a.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("veritrace_wallet_%s.xlsx", now.Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
