package handlers

import (
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"p9e.in/veritrace/pkg/blobstore"
	"p9e.in/veritrace/pkg/declaration"
)

// maxUploadBody bounds one multipart request. Single files are still held
// to declaration.MaxFileSize by the workflow.
const maxUploadBody = 64 << 20

type uploadResp struct {
	Accepted    []declaration.DocumentFile `json:"accepted"`
	Errors      []string                   `json:"errors"`
	Sizes       map[string]string          `json:"sizes"`
	Declaration declarationView            `json:"declaration"`
}

// contentType returns the part's declared MIME type, sniffing the content
// when the client sent none or only the generic octet-stream.
func contentType(fh *multipart.FileHeader) string {
	declared := fh.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}

	f, err := fh.Open()
	if err != nil {
		return declared
	}
	defer f.Close()
	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return declared
	}
	mt, _, _ := strings.Cut(detected.String(), ";")
	return mt
}

// UploadDocuments attaches the "files" parts of a multipart request. Each
// file is validated independently; accepted ones are stored and the rest
// are reported in errors.
func (a *API) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "missing files field")
		return
	}

	candidates := make([]declaration.RawFile, 0, len(headers))
	for _, fh := range headers {
		candidates = append(candidates, declaration.RawFile{
			Name: fh.Filename,
			Type: contentType(fh),
			Size: fh.Size,
		})
	}

	sessionID := mux.Vars(r)["id"]
	var result declaration.AttachResult
	view, err := a.mutate(r, func(wf *declaration.Workflow) error {
		result = wf.AttachFiles(candidates)
		stored := make([]declaration.DocumentFile, 0, len(result.Accepted))
		for _, doc := range result.Accepted {
			if err := a.storeBlob(r, sessionID, doc, headers); err != nil {
				a.log.Error("failed to store document",
					zap.String("session", sessionID),
					zap.String("file", doc.Name),
					zap.Error(err))
				wf.RemoveDocument(doc.ID)
				result.Errors = append(result.Errors, doc.Name+" could not be stored")
				continue
			}
			stored = append(stored, doc)
		}
		result.Accepted = stored
		return nil
	})
	if err != nil {
		a.failRequest(w, r, err)
		return
	}

	if result.Errors == nil {
		result.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, uploadResp{
		Accepted:    result.Accepted,
		Errors:      result.Errors,
		Sizes:       documentSizes(view.Record.Documents),
		Declaration: view,
	})
}

func (a *API) storeBlob(r *http.Request, sessionID string, doc declaration.DocumentFile, headers []*multipart.FileHeader) error {
	if a.blobs == nil {
		return nil
	}
	for _, fh := range headers {
		if fh.Filename != doc.Name || fh.Size != doc.Size {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		return a.blobs.Put(r.Context(), blobstore.Key(sessionID, doc.ID), doc.Type, f)
	}
	return nil
}

// RemoveDocument detaches a document and deletes its stored bytes.
func (a *API) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	docID := vars["docId"]
	view, err := a.mutate(r, func(wf *declaration.Workflow) error {
		if !wf.RemoveDocument(docID) {
			return &requestError{status: http.StatusNotFound, msg: "document not found"}
		}
		return nil
	})
	if err != nil {
		a.failRequest(w, r, err)
		return
	}

	if a.blobs != nil {
		if err := a.blobs.Delete(r.Context(), blobstore.Key(vars["id"], docID)); err != nil {
			a.log.Warn("failed to delete document bytes", zap.String("document", docID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, view)
}

// documentSizes maps document ids to human-readable sizes.
func documentSizes(docs []declaration.DocumentFile) map[string]string {
	out := make(map[string]string, len(docs))
	for _, d := range docs {
		out[d.ID] = declaration.FormatFileSize(d.Size)
	}
	return out
}
