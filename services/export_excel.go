package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"contractadmin/table"
)

const maxSheetName = 31

// excelStyles holds the style ids shared by the workbook generators.
type excelStyles struct {
	title    int
	subtitle int
	header   int
	section  int
	cell     int
	budget   int
	label    int
	value    int
}

func newExcelStyles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	defs := []struct {
		dst   *int
		name  string
		style *excelize.Style
	}{
		{&s.title, "title", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&s.subtitle, "subtitle", &excelize.Style{Font: &excelize.Font{Size: 11}}},
		{&s.header, "header", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    thinBorders(),
		}},
		{&s.section, "section", &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 11},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#E9ECEF"}, Pattern: 1},
			Border: thinBorders(),
		}},
		{&s.cell, "cell", &excelize.Style{Font: &excelize.Font{Size: 10}, Border: thinBorders()}},
		{&s.budget, "budget cell", &excelize.Style{
			Font:   &excelize.Font{Size: 10, Color: "#555555"},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#F5F5F5"}, Pattern: 1},
			Border: thinBorders(),
		}},
		{&s.label, "summary label", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
		{&s.value, "summary value", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return s, fmt.Errorf("create %s style: %w", d.name, err)
		}
		*d.dst = id
	}
	return s, nil
}

// sheetNameReplacer swaps the characters excelize rejects in sheet names.
var sheetNameReplacer = strings.NewReplacer(
	":", "-", `\`, "-", "/", "-", "?", "-", "*", "-", "[", "-", "]", "-",
)

// sheetNameFor turns a title into a valid worksheet name: forbidden
// characters become "-", the result is cut to 31 runes and an empty name
// falls back.
func sheetNameFor(title, fallback string) string {
	name := strings.Trim(strings.TrimSpace(sheetNameReplacer.Replace(title)), "'")
	if r := []rune(name); len(r) > maxSheetName {
		name = strings.TrimSpace(string(r[:maxSheetName]))
	}
	if name == "" {
		return fallback
	}
	return name
}

// GenerateContractExcel creates a workbook with one BOQ section per
// building, the variation orders and the contract totals.
func GenerateContractExcel(data ContractExport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := sheetNameFor(data.ContractNumber, "Contract")
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E", "F", "G"}
	lastCol := columns[len(columns)-1]
	widths := []float64{8, 44, 12, 8, 12, 16, 18}
	for i, col := range columns {
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	st, err := newExcelStyles(f)
	if err != nil {
		return nil, err
	}

	// ── Header ──────────────────────────────────────────────────────────

	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", sanitizeExcelCell(data.Title))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", st.title)

	info := []string{
		"Contract: " + data.ContractNumber + " (" + data.Status + ")",
		"Project: " + data.ProjectName + " / Trade: " + data.TradeName,
		"Subcontractor: " + data.SubcontractorName,
		"Period: " + data.StartDate + " to " + data.CompletionDate,
	}
	row := 2
	for _, line := range info {
		cell := fmt.Sprintf("A%d", row)
		if err := f.MergeCell(sheetName, cell, fmt.Sprintf("%s%d", lastCol, row)); err != nil {
			return nil, fmt.Errorf("merge info: %w", err)
		}
		f.SetCellValue(sheetName, cell, sanitizeExcelCell(line))
		f.SetCellStyle(sheetName, cell, cell, st.subtitle)
		row++
	}
	row++

	// ── BOQ per building ────────────────────────────────────────────────

	headers := []string{"No", "Description", "Cost Code", "Unit", "Qty", "Unit Price", "Total"}
	for _, b := range data.Buildings {
		r := fmt.Sprint(row)
		if err := f.MergeCell(sheetName, "A"+r, lastCol+r); err != nil {
			return nil, fmt.Errorf("merge building: %w", err)
		}
		f.SetCellValue(sheetName, "A"+r, sanitizeExcelCell(b.Name))
		f.SetCellStyle(sheetName, "A"+r, lastCol+r, st.section)
		row++

		r = fmt.Sprint(row)
		for i, h := range headers {
			f.SetCellValue(sheetName, columns[i]+r, h)
		}
		f.SetCellStyle(sheetName, "A"+r, lastCol+r, st.header)
		row++

		for _, l := range b.Lines {
			r = fmt.Sprint(row)
			f.SetCellValue(sheetName, "A"+r, sanitizeExcelCell(l.No))
			f.SetCellValue(sheetName, "B"+r, sanitizeExcelCell(l.Key))
			f.SetCellValue(sheetName, "C"+r, sanitizeExcelCell(l.CostCode))
			f.SetCellValue(sheetName, "D"+r, sanitizeExcelCell(l.Unite))
			f.SetCellValue(sheetName, "E"+r, l.Qte)
			f.SetCellValue(sheetName, "F"+r, l.PU)
			f.SetCellValue(sheetName, "G"+r, l.Total)
			style := st.cell
			if l.Budget {
				style = st.budget
			}
			f.SetCellStyle(sheetName, "A"+r, lastCol+r, style)
			row++
		}

		r = fmt.Sprint(row)
		f.SetCellValue(sheetName, "F"+r, "Subtotal:")
		f.SetCellStyle(sheetName, "F"+r, "F"+r, st.label)
		f.SetCellValue(sheetName, "G"+r, FormatAmount(b.Subtotal, data.Currency))
		f.SetCellStyle(sheetName, "G"+r, "G"+r, st.value)
		row += 2
	}

	// ── Variation orders ────────────────────────────────────────────────

	if len(data.Variations) > 0 {
		r := fmt.Sprint(row)
		if err := f.MergeCell(sheetName, "A"+r, lastCol+r); err != nil {
			return nil, fmt.Errorf("merge variations: %w", err)
		}
		f.SetCellValue(sheetName, "A"+r, "Variation Orders")
		f.SetCellStyle(sheetName, "A"+r, lastCol+r, st.section)
		row++
		for _, v := range data.Variations {
			r = fmt.Sprint(row)
			f.SetCellValue(sheetName, "A"+r, sanitizeExcelCell(v.Number))
			f.SetCellValue(sheetName, "B"+r, sanitizeExcelCell(v.Description))
			f.SetCellValue(sheetName, "C"+r, v.Status)
			f.SetCellValue(sheetName, "G"+r, v.Amount)
			f.SetCellStyle(sheetName, "A"+r, lastCol+r, st.cell)
			row++
		}
		row++
	}

	// ── Totals ──────────────────────────────────────────────────────────

	summary := []struct {
		label string
		value float64
	}{
		{"Contract Amount:", data.Totals.Gross},
		{"Approved Variations:", data.Totals.ApprovedVariations},
		{"Revised Amount:", data.Totals.Revised},
		{fmt.Sprintf("Advance (%s):", FormatPercent(data.AdvancePercent)), data.Totals.Advance},
		{fmt.Sprintf("Retention (%s):", FormatPercent(data.RetentionPercent)), data.Totals.Retention},
		{"Net Payable:", data.Totals.Net},
	}
	for _, s := range summary {
		r := fmt.Sprint(row)
		f.SetCellValue(sheetName, "F"+r, s.label)
		f.SetCellStyle(sheetName, "F"+r, "F"+r, st.label)
		f.SetCellValue(sheetName, "G"+r, FormatAmount(s.value, data.Currency))
		f.SetCellStyle(sheetName, "G"+r, "G"+r, st.value)
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateRowsExcel writes rows as a flat worksheet, one column per entry of
// cols. It backs the Preview dialog export.
func GenerateRowsExcel(title string, cols table.Columns, rows []table.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := sheetNameFor(title, "Export")
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	st, err := newExcelStyles(f)
	if err != nil {
		return nil, err
	}

	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, sanitizeExcelCell(c.Label))
		f.SetCellStyle(sheetName, cell, cell, st.header)
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	for r, rec := range rows {
		for i, c := range cols {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			switch v := rec[c.Key].(type) {
			case float64, int, int64:
				f.SetCellValue(sheetName, cell, v)
			default:
				f.SetCellValue(sheetName, cell, sanitizeExcelCell(rec.Text(c.Key)))
			}
			f.SetCellStyle(sheetName, cell, cell, st.cell)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
