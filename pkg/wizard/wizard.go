// Package wizard is a terminal front end for the declaration workflow. It
// drives the same Workflow the HTTP API uses, one step at a time.
package wizard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gabriel-vasile/mimetype"

	"p9e.in/veritrace/pkg/assistant"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
	"p9e.in/veritrace/utils"
)

// Issuer turns a submitted record into its certificate. The CLI uses it to
// persist the certificate next to the declaration.
type Issuer func(ctx context.Context, rec declaration.Record) (certificate.Certificate, error)

// Result is what a completed wizard produced.
type Result struct {
	Declaration declaration.Record
	Certificate certificate.Certificate
}

type rowKind int

const (
	rowField rowKind = iota
	rowCertifications
	rowDocuments
)

type row struct {
	kind  rowKind
	field declaration.Field
	label string
}

var labels = map[declaration.Field]string{
	declaration.FieldProductType:          "Product Type",
	declaration.FieldProductName:          "Product Name",
	declaration.FieldProductDescription:   "Description",
	declaration.FieldHSCode:               "HS Code",
	declaration.FieldQuantity:             "Quantity",
	declaration.FieldUnit:                 "Unit",
	declaration.FieldSupplierName:         "Supplier Name",
	declaration.FieldSupplierAddress:      "Supplier Address",
	declaration.FieldSupplierContact:      "Supplier Contact",
	declaration.FieldSupplierTaxID:        "Supplier Tax ID",
	declaration.FieldFarmLocation:         "Farm Location",
	declaration.FieldCoordinates:          "Coordinates (lat,lng)",
	declaration.FieldLandOwnership:        "Land Ownership",
	declaration.FieldForestRiskAssessment: "Forest Risk",
	declaration.FieldRiskMitigation:       "Risk Mitigation",
	declaration.FieldAdditionalNotes:      "Additional Notes",
}

func label(f declaration.Field) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

type submittedMsg struct {
	result Result
	err    error
}

// Model is the bubbletea model of the wizard.
type Model struct {
	ctx       context.Context
	wf        *declaration.Workflow
	assistant *assistant.Assistant
	issue     Issuer

	cursor  int
	input   textinput.Model
	editing bool
	busy    bool

	message string
	err     error
	result  *Result

	styles styles
}

// Option configures a Model.
type Option func(*Model)

// WithAssistant enables ctrl+a autofill.
func WithAssistant(a *assistant.Assistant) Option {
	return func(m *Model) { m.assistant = a }
}

// WithIssuer replaces the default in-memory certificate issuance.
func WithIssuer(issue Issuer) Option {
	return func(m *Model) { m.issue = issue }
}

// WithContext sets the context submissions run under.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// New returns a wizard over wf.
func New(wf *declaration.Workflow, opts ...Option) Model {
	in := textinput.New()
	in.CharLimit = 500
	in.Width = 60

	m := Model{
		ctx:    context.Background(),
		wf:     wf,
		input:  in,
		styles: defaultStyles(),
		issue: func(_ context.Context, rec declaration.Record) (certificate.Certificate, error) {
			return certificate.Issue(rec, time.Now())
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Result returns the submission outcome once the wizard has finished.
func (m Model) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) rows() []row {
	step := m.wf.Step()
	info := step.Info()
	out := make([]row, 0, len(info.Fields)+1)
	for _, f := range info.Fields {
		out = append(out, row{kind: rowField, field: f, label: label(f)})
	}
	switch step {
	case declaration.StepSupplier:
		out = append(out, row{kind: rowCertifications, label: "Certifications"})
	case declaration.StepDocuments:
		out = append(out, row{kind: rowDocuments, label: "Documents"})
	}
	return out
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.result = &msg.result
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stopEditing()
		return m, nil
	case tea.KeyEnter:
		m.commit(m.rows()[m.cursor], m.input.Value())
		m.stopEditing()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	m.message, m.err = "", nil

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "enter":
		cmd := m.startEditing(rows[m.cursor])
		return m, cmd
	case "ctrl+n":
		m.wf.Advance()
		m.cursor = 0
	case "ctrl+p":
		m.wf.Retreat()
		m.cursor = 0
	case "ctrl+d":
		m.removeLast(rows[m.cursor])
	case "ctrl+a":
		m.autofill()
	case "ctrl+s":
		if !m.wf.CanSubmit() {
			m.err = fmt.Errorf("declarations can only be submitted from the review step")
			return m, nil
		}
		m.busy = true
		return m, m.submit()
	}
	return m, nil
}

func (m *Model) startEditing(r row) tea.Cmd {
	m.editing = true
	m.input.Reset()
	switch r.kind {
	case rowField:
		rec := m.wf.Record()
		v, _ := rec.Get(r.field)
		m.input.SetValue(v)
		m.input.Placeholder = label(r.field)
	case rowCertifications:
		m.input.Placeholder = "Add a certification"
	case rowDocuments:
		m.input.Placeholder = "Path to a PDF, image or document"
	}
	return m.input.Focus()
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
}

func (m *Model) commit(r row, value string) {
	switch r.kind {
	case rowField:
		m.wf.SetField(r.field, value)
		if r.field == declaration.FieldLandOwnership && value != "" && !utils.KnownLandOwnership(value) {
			m.message = fmt.Sprintf("%q kept as entered; usual options are %s",
				value, strings.Join(declaration.LandOwnershipOptions, ", "))
		}
	case rowCertifications:
		name := strings.TrimSpace(value)
		if name == "" {
			return
		}
		if !m.wf.AddCertification(name) {
			m.message = name + " is already listed"
		}
	case rowDocuments:
		m.attach(strings.TrimSpace(value))
	}
}

func (m *Model) attach(path string) {
	if path == "" {
		return
	}
	f, err := rawFile(path)
	if err != nil {
		m.err = err
		return
	}
	res := m.wf.AttachFiles([]declaration.RawFile{f})
	if len(res.Errors) > 0 {
		m.err = fmt.Errorf("%s", strings.Join(res.Errors, "; "))
		return
	}
	m.message = "Attached " + f.Name
}

// rawFile describes a file on disk the way an upload part would be.
func rawFile(path string) (declaration.RawFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return declaration.RawFile{}, err
	}
	if info.IsDir() {
		return declaration.RawFile{}, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return declaration.RawFile{}, err
	}
	typ, _, _ := strings.Cut(mt.String(), ";")
	return declaration.RawFile{Name: filepath.Base(path), Type: typ, Size: info.Size()}, nil
}

func (m *Model) removeLast(r row) {
	rec := m.wf.Record()
	switch r.kind {
	case rowCertifications:
		if n := len(rec.SupplierCertifications); n > 0 {
			m.wf.RemoveCertification(rec.SupplierCertifications[n-1])
		}
	case rowDocuments:
		if n := len(rec.Documents); n > 0 {
			m.wf.RemoveDocument(rec.Documents[n-1].ID)
		}
	}
}

func (m *Model) autofill() {
	if m.assistant == nil {
		return
	}
	rec := m.wf.Record()
	actions := m.assistant.QuickActions(m.wf.Step(), rec)
	if len(actions) == 0 {
		m.message = "Nothing to autofill on this step"
		return
	}
	s, ok := m.assistant.Autofill(actions[0], rec)
	if !ok {
		return
	}
	m.wf.SetField(s.Field, s.Value)
	m.message = fmt.Sprintf("Filled %s with %q", label(s.Field), s.Value)
}

func (m Model) submit() tea.Cmd {
	ctx, wf, issue := m.ctx, m.wf, m.issue
	return func() tea.Msg {
		rec, err := wf.Submit(ctx)
		if err != nil {
			return submittedMsg{err: err}
		}
		cert, err := issue(ctx, rec)
		if err != nil {
			return submittedMsg{err: err}
		}
		return submittedMsg{result: Result{Declaration: rec, Certificate: cert}}
	}
}

func (m Model) value(r row, rec declaration.Record) string {
	switch r.kind {
	case rowCertifications:
		return strings.Join(rec.SupplierCertifications, ", ")
	case rowDocuments:
		names := make([]string, 0, len(rec.Documents))
		for _, d := range rec.Documents {
			names = append(names, fmt.Sprintf("%s (%s)", d.Name, declaration.FormatFileSize(d.Size)))
		}
		return strings.Join(names, ", ")
	}
	v, _ := rec.Get(r.field)
	return v
}

func (m Model) View() string {
	if m.result != nil {
		return Summary(*m.result) + "\n"
	}

	step := m.wf.Step()
	info := step.Info()
	rec := m.wf.Record()
	s := m.styles

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Title.Render(fmt.Sprintf("Step %d of %d: %s", step, declaration.LastStep, info.Title)))
	fmt.Fprintf(&b, "%s\n", s.Subtle.Render(info.Description))
	b.WriteString(s.Progress.Render(progress(step)) + "\n\n")

	for i, r := range m.rows() {
		cursor, lbl := "  ", s.Label.Render(r.label)
		if i == m.cursor {
			cursor, lbl = "> ", s.Selected.Render(r.label)
		}
		val := m.value(r, rec)
		if val == "" {
			val = s.Empty.Render("(empty)")
		} else {
			val = s.Value.Render(val)
		}
		b.WriteString(cursor + lbl + val + "\n")
	}

	if step == declaration.StepReview {
		b.WriteString("\n" + s.Box.Render(review(rec)) + "\n")
	}
	if m.editing {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + s.Error.Render(m.err.Error()) + "\n")
	} else if m.message != "" {
		b.WriteString("\n" + s.Info.Render(m.message) + "\n")
	}
	if m.busy {
		b.WriteString("\n" + s.Subtle.Render("Submitting...") + "\n")
	}

	b.WriteString("\n" + s.Subtle.Render(help(step)) + "\n")
	return b.String()
}

func progress(step declaration.Step) string {
	var b strings.Builder
	for s := declaration.FirstStep; s <= declaration.LastStep; s++ {
		if s <= step {
			b.WriteString("● ")
		} else {
			b.WriteString("○ ")
		}
	}
	return strings.TrimSpace(b.String())
}

func help(step declaration.Step) string {
	keys := []string{"↑/↓ select", "enter edit", "ctrl+n next", "ctrl+p back", "ctrl+a autofill"}
	switch step {
	case declaration.StepSupplier, declaration.StepDocuments:
		keys = append(keys, "ctrl+d remove last")
	case declaration.StepReview:
		keys = append(keys, "ctrl+s submit")
	}
	return strings.Join(append(keys, "q quit"), " • ")
}

func review(rec declaration.Record) string {
	lines := []string{
		"Product:        " + orDash(rec.ProductName),
		"HS Code:        " + orDash(rec.HSCode),
		"Quantity:       " + orDash(strings.TrimSpace(rec.Quantity+" "+rec.Unit)),
		"Supplier:       " + orDash(rec.SupplierName),
		"Certifications: " + orDash(strings.Join(rec.SupplierCertifications, ", ")),
		"Coordinates:    " + orDash(rec.Coordinates),
		fmt.Sprintf("Documents:      %d", len(rec.Documents)),
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Summary renders the certificate issued for a submission.
func Summary(r Result) string {
	c := r.Certificate
	lines := []string{
		"Declaration submitted",
		"",
		"Declaration ID:   " + r.Declaration.ID,
		"Certificate ID:   " + c.ID,
		"EU Reference:     " + c.EUReference,
		"Blockchain Hash:  " + certificate.ShortHash(c.BlockchainHash),
		"Issued:           " + c.IssuedDate.Format("2006-01-02"),
		"Expires:          " + c.ExpiryDate.Format("2006-01-02"),
		"Status:           " + string(c.Status),
		fmt.Sprintf("Compliance Score: %d%%", c.ComplianceScore),
	}
	return strings.Join(lines, "\n")
}
