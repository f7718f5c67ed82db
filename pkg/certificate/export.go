package certificate

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const walletSheet = "Wallet"

var walletColumns = []struct {
	Label string
	Width float64
	Value func(Credential) any
}{
	{"Credential ID", 18, func(c Credential) any { return c.ID }},
	{"Type", 22, func(c Credential) any { return string(c.Type) }},
	{"Title", 32, func(c Credential) any { return c.Title }},
	{"Issuer", 30, func(c Credential) any { return c.Issuer }},
	{"Issued", 14, func(c Credential) any { return c.IssuedDate.Format("2006-01-02") }},
	{"Expires", 14, func(c Credential) any { return c.ExpiryDate.Format("2006-01-02") }},
	{"Status", 16, func(c Credential) any { return string(c.Status) }},
	{"Product", 26, func(c Credential) any { return c.Product }},
	{"Supplier", 26, func(c Credential) any { return c.Supplier }},
	{"EU Reference", 22, func(c Credential) any { return c.EUReference }},
	{"Blockchain Hash", 70, func(c Credential) any { return c.BlockchainHash }},
}

// WriteWorkbook renders creds as an .xlsx workbook to w.
func WriteWorkbook(w io.Writer, holder string, creds []Credential, generated time.Time) error {
	f, err := NewWorkbook(holder, creds, generated)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("certificate: write workbook: %w", err)
	}
	return nil
}

// NewWorkbook builds the wallet workbook: a title row, a generated-at row,
// a header row on row 4 and one row per credential below it.
func NewWorkbook(holder string, creds []Credential, generated time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", walletSheet); err != nil {
		return nil, fmt.Errorf("certificate: name sheet: %w", err)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F7A4D"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})

	title := "Credential Wallet"
	if holder != "" {
		title += " - " + holder
	}
	f.SetCellValue(walletSheet, "A1", title)
	f.SetCellStyle(walletSheet, "A1", "A1", titleStyle)
	f.SetCellValue(walletSheet, "A2", fmt.Sprintf("Generated: %s", generated.Format("2006-01-02 15:04:05")))

	for i, col := range walletColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(walletSheet, cell, col.Label)
		f.SetCellStyle(walletSheet, cell, cell, headerStyle)
		name, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(walletSheet, name, name, col.Width)
	}

	for row, c := range creds {
		for i, col := range walletColumns {
			cell, _ := excelize.CoordinatesToCellName(i+1, row+5)
			f.SetCellValue(walletSheet, cell, col.Value(c))
		}
	}
	return f, nil
}
