package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	mutedColor  = &props.Color{Red: 80, Green: 80, Blue: 80}
	headerColor = &props.Color{Red: 33, Green: 37, Blue: 41}
	budgetColor = &props.Color{Red: 245, Green: 245, Blue: 245}
	bandColor   = &props.Color{Red: 233, Green: 236, Blue: 239}
)

// GenerateContractPDF renders a contract with its BOQ per building,
// variation orders and totals using maroto/v2.
func GenerateContractPDF(data ContractExport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addContractHeader(m, data)
	for _, b := range data.Buildings {
		addBuildingSection(m, b, data.Currency)
	}
	if len(data.Variations) > 0 {
		addVariations(m, data.Variations, data.Currency)
	}
	addContractSummary(m, data)
	addFooter(m, data.CreatedDate)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addContractHeader(m core.Maroto, data ContractExport) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(data.Title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}),
			),
		),
	)

	small := props.Text{Size: 9, Align: align.Left, Color: mutedColor}
	smallRight := small
	smallRight.Align = align.Right

	m.AddRows(
		row.New(6).Add(
			col.New(6).Add(text.New(fmt.Sprintf("Contract: %s (%s)", data.ContractNumber, data.Status), small)),
			col.New(6).Add(text.New(fmt.Sprintf("Date: %s", data.ContractDate), smallRight)),
		),
		row.New(6).Add(
			col.New(6).Add(text.New(fmt.Sprintf("Project: %s / Trade: %s", data.ProjectName, data.TradeName), small)),
			col.New(6).Add(text.New(fmt.Sprintf("Subcontractor: %s", data.SubcontractorName), smallRight)),
		),
		row.New(6).Add(
			col.New(12).Add(text.New(fmt.Sprintf("Period: %s to %s", data.StartDate, data.CompletionDate), small)),
		),
	)
	m.AddRows(row.New(4))
}

func addBuildingSection(m core.Maroto, b ExportBuilding, currency string) {
	m.AddRows(
		row.New(8).Add(
			col.New(12).Add(
				text.New(b.Name, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Left}),
			).WithStyle(&props.Cell{BackgroundColor: bandColor}),
		),
	)

	headerText := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center, Color: &props.Color{Red: 255, Green: 255, Blue: 255}}
	headerLeft := headerText
	headerLeft.Align = align.Left
	headerCell := &props.Cell{BackgroundColor: headerColor}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(text.New("No", headerText)).WithStyle(headerCell),
			col.New(4).Add(text.New("Description", headerLeft)).WithStyle(headerCell),
			col.New(1).Add(text.New("Cost Code", headerText)).WithStyle(headerCell),
			col.New(1).Add(text.New("Unit", headerText)).WithStyle(headerCell),
			col.New(1).Add(text.New("Qty", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Unit Price", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Total", headerText)).WithStyle(headerCell),
		),
	)

	for _, l := range b.Lines {
		addLineRow(m, l)
	}

	label := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}
	m.AddRows(
		row.New(7).Add(
			col.New(10).Add(text.New("Subtotal", label)),
			col.New(2).Add(text.New(FormatAmount(b.Subtotal, currency), label)),
		),
	)
	m.AddRows(row.New(4))
}

// addLineRow adds one BOQ line. Lines copied from the budget are shaded.
func addLineRow(m core.Maroto, l ExportLine) {
	base := props.Text{Size: 7, Align: align.Center}
	left := base
	left.Align = align.Left
	right := base
	right.Align = align.Right

	cols := []core.Col{
		col.New(1).Add(text.New(l.No, base)),
		col.New(4).Add(text.New(l.Key, left)),
		col.New(1).Add(text.New(l.CostCode, base)),
		col.New(1).Add(text.New(l.Unite, base)),
		col.New(1).Add(text.New(FormatQty(l.Qte), right)),
		col.New(2).Add(text.New(FormatAmount(l.PU, ""), right)),
		col.New(2).Add(text.New(FormatAmount(l.Total, ""), right)),
	}
	if l.Budget {
		for i, c := range cols {
			cols[i] = c.WithStyle(&props.Cell{BackgroundColor: budgetColor})
		}
	}
	m.AddRows(row.New(7).Add(cols...))
}

func addVariations(m core.Maroto, vos []ExportVariation, currency string) {
	m.AddRows(
		row.New(8).Add(
			col.New(12).Add(
				text.New("Variation Orders", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Left}),
			).WithStyle(&props.Cell{BackgroundColor: bandColor}),
		),
	)
	base := props.Text{Size: 7, Align: align.Left}
	right := base
	right.Align = align.Right
	for _, v := range vos {
		m.AddRows(
			row.New(7).Add(
				col.New(2).Add(text.New(v.Number, base)),
				col.New(6).Add(text.New(v.Description, base)),
				col.New(2).Add(text.New(v.Status, base)),
				col.New(2).Add(text.New(FormatAmount(v.Amount, currency), right)),
			),
		)
	}
	m.AddRows(row.New(4))
}

func addContractSummary(m core.Maroto, data ContractExport) {
	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	style := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}

	lines := []struct {
		label string
		value float64
	}{
		{"Contract Amount", data.Totals.Gross},
		{"Approved Variations", data.Totals.ApprovedVariations},
		{"Revised Amount", data.Totals.Revised},
		{fmt.Sprintf("Advance (%s)", FormatPercent(data.AdvancePercent)), data.Totals.Advance},
		{fmt.Sprintf("Retention (%s)", FormatPercent(data.RetentionPercent)), data.Totals.Retention},
		{"Net Payable", data.Totals.Net},
	}
	for _, l := range lines {
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(text.New(l.label, style)).WithStyle(summaryCell),
				col.New(4).Add(text.New(FormatAmount(l.value, data.Currency), style)).WithStyle(summaryCell),
			),
		)
	}
}

func addFooter(m core.Maroto, created string) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Generated on %s", created), props.Text{
					Size:  7,
					Align: align.Left,
					Color: &props.Color{Red: 140, Green: 140, Blue: 140},
				}),
			),
		),
	)
}
