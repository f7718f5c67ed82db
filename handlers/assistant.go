package handlers

import (
	"net/http"

	"p9e.in/veritrace/middleware"
	"p9e.in/veritrace/pkg/assistant"
	"p9e.in/veritrace/pkg/declaration"
)

type askReq struct {
	Question string `json:"question"`
	// Declaration, when set, grounds the answer in that draft's current
	// step and product type.
	Declaration string `json:"declaration,omitempty"`
}

type askResp struct {
	assistant.Reply
	QuickActions []assistant.Kind `json:"quickActions"`
}

// Ask answers a compliance question.
func (a *API) Ask(w http.ResponseWriter, r *http.Request) {
	var req askReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	step := declaration.FirstStep
	rec := declaration.NewRecord()
	if req.Declaration != "" {
		snap, err := a.sessions.Get(middleware.GetUserID(r), req.Declaration)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		step, rec = snap.Step, snap.Record
	}

	qa := a.assistant.QuickActions(step, rec)
	if qa == nil {
		qa = []assistant.Kind{}
	}
	writeJSON(w, http.StatusOK, askResp{
		Reply:        a.assistant.Ask(req.Question, step, rec),
		QuickActions: qa,
	})
}
