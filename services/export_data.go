package services

// ExportLine is one BOQ line in a contract export.
type ExportLine struct {
	No       string
	Key      string
	CostCode string
	Unite    string
	Qte      float64
	PU       float64
	Total    float64
	Budget   bool // copied from a budget sheet
}

// ExportBuilding groups the lines of one contract building.
type ExportBuilding struct {
	Name     string
	Lines    []ExportLine
	Subtotal float64
}

// ExportVariation is one variation order in a contract export.
type ExportVariation struct {
	Number      string
	Description string
	Status      string
	Amount      float64
}

// ContractExport holds all data needed for a contract export.
type ContractExport struct {
	Title             string
	ContractNumber    string
	Status            string
	ProjectName       string
	TradeName         string
	SubcontractorName string
	Currency          string
	ContractDate      string
	StartDate         string
	CompletionDate    string
	AdvancePercent    float64
	RetentionPercent  float64
	CreatedDate       string
	Buildings         []ExportBuilding
	Variations        []ExportVariation
	Totals            ContractTotals
}
