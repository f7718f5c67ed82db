package declaration

import "strings"

// StatusPending is stamped on every submitted declaration.
const StatusPending = "pending"

// Field names a scalar value of a Record. The string values double as the
// JSON keys of the record.
type Field string

const (
	FieldProductType          Field = "productType"
	FieldProductName          Field = "productName"
	FieldProductDescription   Field = "productDescription"
	FieldHSCode               Field = "hsCode"
	FieldQuantity             Field = "quantity"
	FieldUnit                 Field = "unit"
	FieldSupplierName         Field = "supplierName"
	FieldSupplierAddress      Field = "supplierAddress"
	FieldSupplierContact      Field = "supplierContact"
	FieldSupplierTaxID        Field = "supplierTaxId"
	FieldFarmLocation         Field = "farmLocation"
	FieldCoordinates          Field = "coordinates"
	FieldLandOwnership        Field = "landOwnership"
	FieldForestRiskAssessment Field = "forestRiskAssessment"
	FieldRiskMitigation       Field = "riskMitigation"
	FieldAdditionalNotes      Field = "additionalNotes"
)

// Land ownership values offered by the form. The record accepts any string.
var LandOwnershipOptions = []string{"owned", "leased", "contracted", "cooperative"}

// DocumentFile is metadata about one attached supporting document.
type DocumentFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Record is the declaration being assembled. ID, Timestamp and Status stay
// empty until submission.
type Record struct {
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Status    string `json:"status,omitempty"`

	ProductType        string `json:"productType"`
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
	HSCode             string `json:"hsCode"`
	Quantity           string `json:"quantity"`
	Unit               string `json:"unit"`

	SupplierName           string   `json:"supplierName"`
	SupplierAddress        string   `json:"supplierAddress"`
	SupplierContact        string   `json:"supplierContact"`
	SupplierTaxID          string   `json:"supplierTaxId"`
	SupplierCertifications []string `json:"supplierCertifications"`

	FarmLocation         string `json:"farmLocation"`
	Coordinates          string `json:"coordinates"`
	LandOwnership        string `json:"landOwnership"`
	ForestRiskAssessment string `json:"forestRiskAssessment"`

	Documents []DocumentFile `json:"documents"`

	RiskMitigation  string `json:"riskMitigation"`
	AdditionalNotes string `json:"additionalNotes"`
}

// NewRecord returns an empty record with non-nil collections so it
// serialises as [] rather than null.
func NewRecord() Record {
	return Record{
		SupplierCertifications: []string{},
		Documents:              []DocumentFile{},
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.SupplierCertifications = append([]string{}, r.SupplierCertifications...)
	r.Documents = append([]DocumentFile{}, r.Documents...)
	return r
}

// Get returns the value of a scalar field. ok is false for unknown names.
func (r *Record) Get(name Field) (value string, ok bool) {
	p := r.field(name)
	if p == nil {
		return "", false
	}
	return *p, true
}

// IsField reports whether name is a settable scalar field.
func IsField(name string) bool {
	var r Record
	return r.field(Field(name)) != nil
}

func (r *Record) field(name Field) *string {
	switch name {
	case FieldProductType:
		return &r.ProductType
	case FieldProductName:
		return &r.ProductName
	case FieldProductDescription:
		return &r.ProductDescription
	case FieldHSCode:
		return &r.HSCode
	case FieldQuantity:
		return &r.Quantity
	case FieldUnit:
		return &r.Unit
	case FieldSupplierName:
		return &r.SupplierName
	case FieldSupplierAddress:
		return &r.SupplierAddress
	case FieldSupplierContact:
		return &r.SupplierContact
	case FieldSupplierTaxID:
		return &r.SupplierTaxID
	case FieldFarmLocation:
		return &r.FarmLocation
	case FieldCoordinates:
		return &r.Coordinates
	case FieldLandOwnership:
		return &r.LandOwnership
	case FieldForestRiskAssessment:
		return &r.ForestRiskAssessment
	case FieldRiskMitigation:
		return &r.RiskMitigation
	case FieldAdditionalNotes:
		return &r.AdditionalNotes
	}
	return nil
}

// Latitude and Longitude read the halves of the "lat,lng" composite.
func (r *Record) Latitude() string {
	lat, _ := splitCoordinates(r.Coordinates)
	return lat
}

func (r *Record) Longitude() string {
	_, lng := splitCoordinates(r.Coordinates)
	return lng
}

func splitCoordinates(composite string) (lat, lng string) {
	parts := strings.Split(composite, ",")
	lat = parts[0]
	if len(parts) > 1 {
		lng = parts[1]
	}
	return lat, lng
}
