// Package services provides pricing, formatting, import/export and storage
// functions for contracts and their bills of quantities.
package services

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalcLineTotal returns qte * pu rounded to cents.
func CalcLineTotal(qte, pu float64) float64 {
	return decimal.NewFromFloat(qte).Mul(decimal.NewFromFloat(pu)).Round(2).InexactFloat64()
}

// ContractTotals summarises a contract's value.
type ContractTotals struct {
	Gross              float64 // sum of BOQ lines
	ApprovedVariations float64
	Revised            float64 // gross plus approved variations
	Advance            float64
	Retention          float64
	Net                float64 // revised minus retention
}

// CalcContractTotals sums lineTotals and approved variation amounts, then
// applies the advance and retention percentages to the revised amount.
func CalcContractTotals(lineTotals []float64, approvedVariations []float64, advancePct, retentionPct float64) ContractTotals {
	gross := sum(lineTotals)
	variations := sum(approvedVariations)
	revised := gross.Add(variations)
	advance := revised.Mul(decimal.NewFromFloat(advancePct)).Div(hundred).Round(2)
	retention := revised.Mul(decimal.NewFromFloat(retentionPct)).Div(hundred).Round(2)

	return ContractTotals{
		Gross:              gross.InexactFloat64(),
		ApprovedVariations: variations.InexactFloat64(),
		Revised:            revised.InexactFloat64(),
		Advance:            advance.InexactFloat64(),
		Retention:          retention.InexactFloat64(),
		Net:                revised.Sub(retention).InexactFloat64(),
	}
}

func sum(values []float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}
