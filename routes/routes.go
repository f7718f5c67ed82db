package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"p9e.in/veritrace/handlers"
	"p9e.in/veritrace/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(api *handlers.API, auth *middleware.Auth, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/login", api.Login).Methods("POST")
	r.HandleFunc("/healthz", api.Health).Methods("GET")

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(auth.JWTMiddleware)

	v1.HandleFunc("/profile", api.Profile).Methods("GET")

	registerCatalogRoutes(v1, api)
	registerDeclarationRoutes(v1, api)
	registerCertificateRoutes(v1, api)

	return middleware.CORS(r)
}

func registerCatalogRoutes(r *mux.Router, api *handlers.API) {
	c := r.PathPrefix("/catalog").Subrouter()
	c.HandleFunc("/products", api.ListProducts).Methods("GET")
	c.HandleFunc("/hs-codes", api.HSCodes).Methods("GET")
	c.HandleFunc("/descriptions", api.Descriptions).Methods("GET")
	c.HandleFunc("/certifications", api.Certifications).Methods("GET")
	c.HandleFunc("/units", api.Units).Methods("GET")
	c.HandleFunc("/risk-assessment", api.RiskAssessment).Methods("GET")

	r.HandleFunc("/assistant/ask", api.Ask).Methods("POST")
}

func registerDeclarationRoutes(r *mux.Router, api *handlers.API) {
	r.HandleFunc("/declarations", api.CreateDeclaration).Methods("POST")
	r.HandleFunc("/declarations", api.ListDeclarations).Methods("GET")
	r.HandleFunc("/declarations/geojson", api.SubmittedGeoJSON).Methods("GET")

	d := r.PathPrefix("/declarations/{id}").Subrouter()
	d.HandleFunc("", api.GetDeclaration).Methods("GET")
	d.HandleFunc("", api.DiscardDeclaration).Methods("DELETE")
	d.HandleFunc("/fields/{field}", api.SetField).Methods("PUT")
	d.HandleFunc("/certifications", api.AddCertification).Methods("POST")
	d.HandleFunc("/certifications/{name}", api.RemoveCertification).Methods("DELETE")
	d.HandleFunc("/coordinates", api.SetCoordinates).Methods("PUT")
	d.HandleFunc("/advance", api.Advance).Methods("POST")
	d.HandleFunc("/retreat", api.Retreat).Methods("POST")
	d.HandleFunc("/goto/{step}", api.GoTo).Methods("POST")
	d.HandleFunc("/documents", api.UploadDocuments).Methods("POST")
	d.HandleFunc("/documents/{docId}", api.RemoveDocument).Methods("DELETE")
	d.HandleFunc("/autofill/{kind}", api.Autofill).Methods("POST")
	d.HandleFunc("/submit", api.Submit).Methods("POST")
	d.HandleFunc("/geojson", api.GeoJSON).Methods("GET")
}

func registerCertificateRoutes(r *mux.Router, api *handlers.API) {
	r.HandleFunc("/certificates", api.ListCertificates).Methods("GET")
	r.HandleFunc("/certificates/{declarationId}", api.GetCertificate).Methods("GET")
	r.HandleFunc("/wallet", api.Wallet).Methods("GET")
	r.HandleFunc("/wallet/export", api.ExportWallet).Methods("GET")
}
