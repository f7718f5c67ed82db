package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"p9e.in/veritrace/middleware"
	"p9e.in/veritrace/pkg/assistant"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
	"p9e.in/veritrace/pkg/session"
	"p9e.in/veritrace/utils"
)

// requestError is a client mistake detected while holding a session lock.
type requestError struct {
	status  int
	msg     string
	details []string
}

func (e *requestError) Error() string { return e.msg }

type declarationView struct {
	session.Snapshot
	StepInfo     declaration.StepInfo   `json:"stepInfo"`
	Steps        []declaration.StepInfo `json:"steps"`
	Missing      []declaration.Field    `json:"missing"`
	CanSubmit    bool                   `json:"canSubmit"`
	QuickActions []assistant.Kind       `json:"quickActions"`
}

type viewExtras struct {
	missing      []declaration.Field
	canSubmit    bool
	quickActions []assistant.Kind
}

func (a *API) extras(wf *declaration.Workflow) viewExtras {
	qa := a.assistant.QuickActions(wf.Step(), wf.Record())
	if qa == nil {
		qa = []assistant.Kind{}
	}
	missing := wf.Missing(wf.Step())
	if missing == nil {
		missing = []declaration.Field{}
	}
	return viewExtras{missing: missing, canSubmit: wf.CanSubmit(), quickActions: qa}
}

func newView(snap session.Snapshot, x viewExtras) declarationView {
	return declarationView{
		Snapshot:     snap,
		StepInfo:     snap.Step.Info(),
		Steps:        declaration.Steps(),
		Missing:      x.missing,
		CanSubmit:    x.canSubmit,
		QuickActions: x.quickActions,
	}
}

// mutate runs fn on the session named in the path under its lock and
// returns the resulting view.
func (a *API) mutate(r *http.Request, fn func(*declaration.Workflow) error) (declarationView, error) {
	var x viewExtras
	snap, err := a.sessions.With(middleware.GetUserID(r), mux.Vars(r)["id"], func(wf *declaration.Workflow) error {
		if err := fn(wf); err != nil {
			return err
		}
		x = a.extras(wf)
		return nil
	})
	if err != nil {
		return declarationView{}, err
	}
	return newView(snap, x), nil
}

func (a *API) respondMutation(w http.ResponseWriter, r *http.Request, fn func(*declaration.Workflow) error) {
	view, err := a.mutate(r, fn)
	if err != nil {
		a.failRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) failRequest(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeError(w, re.status, re.msg, re.details...)
		return
	}
	a.fail(w, r, err)
}

// CreateDeclaration opens a new draft on step 1.
func (a *API) CreateDeclaration(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r)
	snap := a.sessions.Create(owner)

	var x viewExtras
	snap, err := a.sessions.With(owner, snap.ID, func(wf *declaration.Workflow) error {
		x = a.extras(wf)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newView(snap, x))
}

// ListDeclarations returns the caller's open drafts and submitted
// declarations.
func (a *API) ListDeclarations(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r)
	submitted, err := a.repo.Declarations(r.Context(), owner)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"drafts":    a.sessions.List(owner),
		"submitted": submitted,
	})
}

func (a *API) GetDeclaration(w http.ResponseWriter, r *http.Request) {
	a.respondMutation(w, r, func(*declaration.Workflow) error { return nil })
}

// DiscardDeclaration drops a draft and its uploaded documents.
func (a *API) DiscardDeclaration(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Discard(middleware.GetUserID(r), mux.Vars(r)["id"]); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type valueReq struct {
	Value string `json:"value"`
}

func (a *API) SetField(w http.ResponseWriter, r *http.Request) {
	field := mux.Vars(r)["field"]
	if !declaration.IsField(field) {
		writeError(w, http.StatusBadRequest, "unknown field "+strconv.Quote(field))
		return
	}
	var req valueReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	a.respondMutation(w, r, func(wf *declaration.Workflow) error {
		wf.SetField(declaration.Field(field), req.Value)
		return nil
	})
}

type certificationReq struct {
	Name string `json:"name"`
}

func (a *API) AddCertification(w http.ResponseWriter, r *http.Request) {
	var req certificationReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "certification name is required")
		return
	}
	a.respondMutation(w, r, func(wf *declaration.Workflow) error {
		wf.AddCertification(name)
		return nil
	})
}

func (a *API) RemoveCertification(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	a.respondMutation(w, r, func(wf *declaration.Workflow) error {
		if !wf.RemoveCertification(name) {
			return &requestError{status: http.StatusNotFound, msg: "certification " + strconv.Quote(name) + " is not listed"}
		}
		return nil
	})
}

type coordinatesReq struct {
	Latitude  *string `json:"latitude"`
	Longitude *string `json:"longitude"`
}

// SetCoordinates updates either half of the "lat,lng" composite. An absent
// half is left alone.
func (a *API) SetCoordinates(w http.ResponseWriter, r *http.Request) {
	var req coordinatesReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Latitude == nil && req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude or longitude is required")
		return
	}
	a.respondMutation(w, r, func(wf *declaration.Workflow) error {
		if req.Latitude != nil {
			wf.SetLatitude(*req.Latitude)
		}
		if req.Longitude != nil {
			wf.SetLongitude(*req.Longitude)
		}
		return nil
	})
}

func (a *API) Advance(w http.ResponseWriter, r *http.Request) {
	a.respondMutation(w, r, func(wf *declaration.Workflow) error {
		wf.Advance()
		return nil
	})
}

func (a *API) Retreat(w http.ResponseWriter, r *http.Request) {
	a.respondMutation(w, r, func(wf *declaration.Workflow) error {
		wf.Retreat()
		return nil
	})
}

func (a *API) GoTo(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["step"])
	step := declaration.Step(n)
	if err != nil || !step.Valid() {
		writeError(w, http.StatusBadRequest, "step must be between 1 and 5")
		return
	}
	a.respondMutation(w, r, func(wf *declaration.Workflow) error {
		wf.GoTo(step)
		return nil
	})
}

// Autofill applies the assistant's suggestion for the kind in the path.
func (a *API) Autofill(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	if !assistant.ValidKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown autofill kind "+strconv.Quote(kind))
		return
	}

	var applied assistant.Suggestion
	view, err := a.mutate(r, func(wf *declaration.Workflow) error {
		s, ok := a.assistant.Autofill(assistant.Kind(kind), wf.Record())
		if !ok {
			return &requestError{status: http.StatusUnprocessableEntity, msg: "no suggestion available for " + kind}
		}
		wf.SetField(s.Field, s.Value)
		applied = s
		return nil
	})
	if err != nil {
		a.failRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied":     applied,
		"declaration": view,
	})
}

type submitResp struct {
	Declaration declaration.Record      `json:"declaration"`
	Certificate certificate.Certificate `json:"certificate"`
}

// Submit finalizes the draft on step 5. The session's store persists it
// together with its certificate. The draft stays open on the review step.
func (a *API) Submit(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r)
	var rec declaration.Record
	_, err := a.mutate(r, func(wf *declaration.Workflow) error {
		if !wf.CanSubmit() {
			return &requestError{status: http.StatusConflict, msg: "declarations can only be submitted from the review step"}
		}
		var err error
		rec, err = wf.Submit(r.Context())
		return err
	})
	if err != nil {
		a.failRequest(w, r, err)
		return
	}

	cert, err := a.repo.Certificate(r.Context(), owner, rec.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.log.Info("declaration submitted",
		zap.String("declaration", rec.ID),
		zap.String("certificate", cert.ID),
		zap.String("owner", owner))
	writeJSON(w, http.StatusCreated, submitResp{Declaration: rec, Certificate: cert})
}

// GeoJSON renders the draft's origin plot as a GeoJSON feature.
func (a *API) GeoJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := a.sessions.Get(middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	feature, err := utils.FarmFeature(snap.Record)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, http.StatusOK, feature)
}

// SubmittedGeoJSON collects the plots of every submitted declaration.
func (a *API) SubmittedGeoJSON(w http.ResponseWriter, r *http.Request) {
	recs, err := a.repo.Declarations(r.Context(), middleware.GetUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, http.StatusOK, utils.FarmCollection(recs))
}
