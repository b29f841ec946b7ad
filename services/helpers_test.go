package services

import "bytes"

// bytesReader wraps a byte slice in a bytes.Reader for use with excelize.OpenReader.
func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func sampleContractExport() ContractExport {
	lines := []ExportLine{
		{No: "1.1", Key: "Site clearance", CostCode: "01.100", Unite: "m2", Qte: 1200, PU: 8.5, Total: 10200, Budget: true},
		{No: "1.2", Key: "=HYPERLINK(\"x\")", CostCode: "01.200", Unite: "m3", Qte: 850, PU: 45, Total: 38250},
	}
	return ContractExport{
		Title:             "Subcontract RAA-EW-001",
		ContractNumber:    "RAA-EW-001",
		Status:            "Active",
		ProjectName:       "Residence Al Amal",
		TradeName:         "Earth Works",
		SubcontractorName: "Atlas Terrassement",
		Currency:          "MAD",
		ContractDate:      "2025-01-10",
		StartDate:         "2025-02-01",
		CompletionDate:    "2025-09-30",
		AdvancePercent:    10,
		RetentionPercent:  5,
		CreatedDate:       "2025-03-01",
		Buildings:         []ExportBuilding{{Name: "Block A", Lines: lines, Subtotal: 48450}},
		Variations:        []ExportVariation{{Number: "VO-001", Description: "Ramp", Status: "Approved", Amount: 18500}},
		Totals:            CalcContractTotals([]float64{10200, 38250}, []float64{18500}, 10, 5),
	}
}
