package services

import "contractadmin/dialog"

// UnitOptions lists the BOQ units offered in line forms.
var UnitOptions = []string{
	"u",
	"ml",
	"m2",
	"m3",
	"kg",
	"t",
	"ens",
	"forfait",
	"h",
	"j",
}

// VariationOrderFields is the Add/Edit dialog schema for variation orders.
func VariationOrderFields() []dialog.InputField {
	return []dialog.InputField{
		{Name: "vo_number", Label: "VO Number", Type: dialog.FieldText, Required: true},
		{Name: "description", Label: "Description", Type: dialog.FieldTextarea},
		{Name: "amount", Label: "Amount", Type: dialog.FieldNumber, Required: true},
	}
}

// CostCodeFields is the Add/Edit dialog schema for cost codes.
func CostCodeFields() []dialog.InputField {
	return []dialog.InputField{
		{Name: "code", Label: "Code", Type: dialog.FieldText, Required: true},
		{Name: "label", Label: "Label", Type: dialog.FieldText},
	}
}

// TerminationConsequences is disclosed before a contract is terminated.
var TerminationConsequences = []string{
	"The contract becomes read-only.",
	"No further variation orders can be added.",
	"Pending variation orders can no longer be approved.",
}
