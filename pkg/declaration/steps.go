package declaration

// Step is a 1-based position in the declaration form.
type Step int

const (
	StepProduct Step = iota + 1
	StepSupplier
	StepGeolocation
	StepDocuments
	StepReview
)

const (
	FirstStep = StepProduct
	LastStep  = StepReview
)

// StepInfo describes one form step and the scalar fields it owns.
type StepInfo struct {
	Number      Step    `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

var steps = []StepInfo{
	{
		Number:      StepProduct,
		Title:       "Product Information",
		Description: "Basic product details",
		Fields: []Field{FieldProductType, FieldProductName, FieldProductDescription,
			FieldHSCode, FieldQuantity, FieldUnit},
	},
	{
		Number:      StepSupplier,
		Title:       "Supplier Information",
		Description: "Supplier details and certifications",
		Fields:      []Field{FieldSupplierName, FieldSupplierAddress, FieldSupplierContact, FieldSupplierTaxID},
	},
	{
		Number:      StepGeolocation,
		Title:       "Geolocation Data",
		Description: "Farm location and risk assessment",
		Fields:      []Field{FieldFarmLocation, FieldCoordinates, FieldLandOwnership, FieldForestRiskAssessment},
	},
	{
		Number:      StepDocuments,
		Title:       "Documents",
		Description: "Supporting documentation",
		Fields:      []Field{FieldRiskMitigation},
	},
	{
		Number:      StepReview,
		Title:       "Review & Submit",
		Description: "Final review and submission",
		Fields:      []Field{FieldAdditionalNotes},
	},
}

// Steps returns the form steps in order.
func Steps() []StepInfo {
	out := make([]StepInfo, len(steps))
	for i, s := range steps {
		s.Fields = append([]Field(nil), s.Fields...)
		out[i] = s
	}
	return out
}

// Valid reports whether s is within FirstStep..LastStep.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Info returns the description of s. It panics when s is out of range.
func (s Step) Info() StepInfo {
	if !s.Valid() {
		panic(outOfRange(s))
	}
	info := steps[s-1]
	info.Fields = append([]Field(nil), info.Fields...)
	return info
}

func (s Step) String() string {
	if !s.Valid() {
		return "invalid step"
	}
	return steps[s-1].Title
}
