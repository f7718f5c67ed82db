package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"p9e.in/veritrace/middleware"
	"p9e.in/veritrace/pkg/assistant"
	"p9e.in/veritrace/pkg/blobstore"
	"p9e.in/veritrace/pkg/catalog"
	"p9e.in/veritrace/pkg/session"
	"p9e.in/veritrace/pkg/store"
)

// API holds the dependencies of every HTTP handler.
type API struct {
	log       *zap.Logger
	auth      *middleware.Auth
	sessions  *session.Manager
	repo      store.Repository
	blobs     blobstore.Store
	catalog   *catalog.Catalog
	assistant *assistant.Assistant
	now       func() time.Time
}

// Deps are the collaborators NewAPI wires together.
type Deps struct {
	Log      *zap.Logger
	Auth     *middleware.Auth
	Sessions *session.Manager
	Repo     store.Repository
	Blobs    blobstore.Store
	Catalog  *catalog.Catalog
	Now      func() time.Time
}

func NewAPI(d Deps) *API {
	a := &API{
		log:      d.Log,
		auth:     d.Auth,
		sessions: d.Sessions,
		repo:     d.Repo,
		blobs:    d.Blobs,
		catalog:  d.Catalog,
		now:      d.Now,
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.catalog == nil {
		a.catalog = catalog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.assistant = assistant.New(a.catalog)
	return a
}

// DiscardBlobs removes the stored bytes of a closed session's documents.
// It is meant to be registered as the session manager's evict hook.
func (a *API) DiscardBlobs(snap session.Snapshot) {
	if a.blobs == nil || len(snap.Record.Documents) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.blobs.DeletePrefix(ctx, snap.ID); err != nil {
		a.log.Warn("failed to remove session documents", zap.String("session", snap.ID), zap.Error(err))
	}
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": a.sessions.Len(),
		"time":     a.now().UTC().Format(time.RFC3339),
	})
}

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

// fail maps a domain error to a status code and logs what the client does
// not see.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		a.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user", middleware.GetUserID(r)),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
