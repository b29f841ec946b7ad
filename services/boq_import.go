package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"contractadmin/wizard"
)

const (
	mimeCSV   = "text/csv"
	mimeText  = "text/plain"
	mimeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip   = "application/zip"
)

// ErrUnsupportedFile is returned for uploads that are neither CSV nor xlsx.
var ErrUnsupportedFile = errors.New("unsupported file format: must be .csv or .xlsx")

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// BOQImportResult is returned after parsing and validating an uploaded BOQ.
// Items holds only the rows that passed validation.
type BOQImportResult struct {
	TotalRows int               `json:"total_rows"`
	ValidRows int               `json:"valid_rows"`
	ErrorRows int               `json:"error_rows"`
	Errors    []ValidationError `json:"errors"`
	Items     []wizard.BOQItem  `json:"-"`
	FileName  string            `json:"-"`
}

// boqColumns maps accepted header spellings to item fields.
var boqColumns = map[string]string{
	"no":          "no",
	"n°":          "no",
	"description": "key",
	"designation": "key",
	"key":         "key",
	"cost code":   "cost_code",
	"unit":        "unite",
	"unite":       "unite",
	"qty":         "qte",
	"quantity":    "qte",
	"qte":         "qte",
	"unit price":  "pu",
	"pu":          "pu",
}

var boqLabels = map[string]string{
	"no": "No", "key": "Description", "cost_code": "Cost Code",
	"unite": "Unit", "qte": "Qty", "pu": "Unit Price",
}

// BOQTemplateHeaders is the header row of the downloadable import template.
var BOQTemplateHeaders = []string{"No", "Description", "Cost Code", "Unit", "Qty", "Unit Price"}

// DetectSpreadsheet sniffs data and reports whether it is CSV or xlsx. A zip
// that is not recognised as xlsx is handed to excelize, which rejects it.
func DetectSpreadsheet(data []byte) (string, error) {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch m.String() {
		case mimeExcel, mimeZip:
			return mimeExcel, nil
		case mimeCSV, mimeText:
			return mimeCSV, nil
		}
		if strings.HasPrefix(m.String(), mimeText) {
			return mimeCSV, nil
		}
	}
	return "", ErrUnsupportedFile
}

// ParseBOQFile parses an uploaded CSV or xlsx bill of quantities. The format
// is sniffed from content, not from fileName.
func ParseBOQFile(data []byte, fileName string) (*BOQImportResult, error) {
	kind, err := DetectSpreadsheet(data)
	if err != nil {
		return nil, err
	}

	var headers []string
	var dataRows [][]string
	if kind == mimeExcel {
		headers, dataRows, err = parseExcel(bytes.NewReader(data))
	} else {
		headers, dataRows, err = parseCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	columnKeys := mapHeaders(headers)
	if !containsKey(columnKeys, "key") {
		return nil, fmt.Errorf("missing required column %q", "Description")
	}

	result := &BOQImportResult{FileName: fileName}
	for rowIdx, record := range dataRows {
		if blankRow(record) {
			continue
		}
		rowNum := rowIdx + 2 // 1-indexed, +1 for header row
		result.TotalRows++

		values := make(map[string]string, len(columnKeys))
		for colIdx, key := range columnKeys {
			if key == "" || colIdx >= len(record) {
				continue
			}
			values[key] = strings.TrimSpace(record[colIdx])
		}

		item, rowErrors := boqItemFromRow(rowNum, values)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorRows++
			continue
		}
		result.Items = append(result.Items, item)
	}
	result.ValidRows = result.TotalRows - result.ErrorRows
	return result, nil
}

func boqItemFromRow(rowNum int, values map[string]string) (wizard.BOQItem, []ValidationError) {
	var errs []ValidationError
	item := wizard.BOQItem{
		No:       values["no"],
		Key:      values["key"],
		CostCode: values["cost_code"],
		Unite:    values["unite"],
	}
	if item.Key == "" {
		errs = append(errs, ValidationError{Row: rowNum, Field: boqLabels["key"], Message: "Description is required"})
	}

	var err error
	if item.Qte, err = parseAmount(values["qte"]); err != nil {
		errs = append(errs, ValidationError{Row: rowNum, Field: boqLabels["qte"], Message: "Qty must be a non-negative number"})
	}
	if item.PU, err = parseAmount(values["pu"]); err != nil {
		errs = append(errs, ValidationError{Row: rowNum, Field: boqLabels["pu"], Message: "Unit Price must be a non-negative number"})
	}
	return item, errs
}

// parseAmount accepts "1,250.50" and "1250.5". Empty cells are zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %s", s)
	}
	return d, nil
}

// parseCSV reads a CSV file and returns headers + data rows.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return rows[0], rows[1:], nil
}

// mapHeaders returns the item field for each column, "" for unknown ones.
func mapHeaders(headers []string) []string {
	mapped := make([]string, len(headers))
	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.TrimSpace(strings.TrimSuffix(norm, "*"))
		mapped[i] = boqColumns[norm]
	}
	return mapped
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func blankRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// GenerateBOQTemplate creates an empty xlsx with the import header row.
func GenerateBOQTemplate() ([]byte, error) {
	cols := append([]string(nil), BOQTemplateHeaders...)
	f := excelize.NewFile()
	defer f.Close()

	sheet := "BOQ"
	f.SetSheetName(f.GetSheetName(0), sheet)
	if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
		return nil, fmt.Errorf("write template header: %w", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateErrorReport creates a downloadable .xlsx file from validation errors.
func GenerateErrorReport(errors []ValidationError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errors"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})

	f.SetCellValue(sheet, "A1", "Row #")
	f.SetCellValue(sheet, "B1", "Field")
	f.SetCellValue(sheet, "C1", "Error")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errors {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, e.Field)
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}
