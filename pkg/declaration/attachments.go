package declaration

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MaxFileSize is the largest accepted attachment, in bytes.
const MaxFileSize = 10 * 1024 * 1024

// AllowedTypes are the MIME types accepted as supporting documents.
var AllowedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/jpg",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrDuplicateFile   = errors.New("duplicate file")
)

// RawFile is an upload candidate as reported by the transport.
type RawFile struct {
	Name string
	Type string
	Size int64
}

// FileError explains why a candidate was rejected.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	switch {
	case errors.Is(e.Err, ErrFileTooLarge):
		return e.Name + " is too large (max 10MB)"
	case errors.Is(e.Err, ErrUnsupportedType):
		return e.Name + " has unsupported file type"
	case errors.Is(e.Err, ErrDuplicateFile):
		return e.Name + " is already uploaded"
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// AttachResult reports one batch: what was appended and why the rest was not.
type AttachResult struct {
	Accepted []DocumentFile `json:"accepted"`
	Errors   []string       `json:"errors"`
}

// ValidateFile runs the size, type and duplicate checks in that order and
// returns the first failure as a *FileError.
func ValidateFile(existing []DocumentFile, f RawFile) error {
	if f.Size > MaxFileSize {
		return &FileError{Name: f.Name, Err: ErrFileTooLarge}
	}
	if !allowedType(f.Type) {
		return &FileError{Name: f.Name, Err: ErrUnsupportedType}
	}
	for _, doc := range existing {
		if doc.Name == f.Name && doc.Size == f.Size {
			return &FileError{Name: f.Name, Err: ErrDuplicateFile}
		}
	}
	return nil
}

func allowedType(mimeType string) bool {
	for _, t := range AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// AttachFiles validates each candidate independently and appends the
// accepted ones to the record. A candidate that matches one accepted
// earlier in the same batch counts as a duplicate.
func (w *Workflow) AttachFiles(candidates []RawFile) AttachResult {
	res := AttachResult{Accepted: []DocumentFile{}, Errors: []string{}}
	for _, f := range candidates {
		if err := ValidateFile(w.record.Documents, f); err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		doc := DocumentFile{ID: w.newID(), Name: f.Name, Type: f.Type, Size: f.Size}
		w.record.Documents = append(w.record.Documents, doc)
		res.Accepted = append(res.Accepted, doc)
	}
	return res
}

// RemoveDocument deletes the document with the given id.
func (w *Workflow) RemoveDocument(id string) bool {
	docs := w.record.Documents
	for i, d := range docs {
		if d.ID == id {
			w.record.Documents = append(docs[:i:i], docs[i+1:]...)
			return true
		}
	}
	return false
}

// Document looks up an attached document by id.
func (w *Workflow) Document(id string) (DocumentFile, bool) {
	for _, d := range w.record.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return DocumentFile{}, false
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders bytes with the largest binary unit that keeps the
// value at or above one, rounded to two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := 0
	div := int64(1)
	for i < len(sizeUnits)-1 && bytes >= div*1024 {
		div *= 1024
		i++
	}
	return hundredths(bytes, div) + " " + sizeUnits[i]
}

// hundredths renders bytes/div to two decimals with ties rounded up, then
// drops trailing zeros. div is a power of 1024, so the quotient is exact.
func hundredths(bytes, div int64) string {
	n := new(big.Int).Mul(big.NewInt(bytes), big.NewInt(200))
	n.Add(n, big.NewInt(div))
	n.Quo(n, new(big.Int).Mul(big.NewInt(div), big.NewInt(2)))

	whole, frac := new(big.Int).QuoRem(n, big.NewInt(100), new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	decimals := strings.TrimRight(fmt.Sprintf("%02d", frac.Int64()), "0")
	return whole.String() + "." + decimals
}
