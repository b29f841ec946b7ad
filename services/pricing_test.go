package services

import "testing"

func TestCalcLineTotal(t *testing.T) {
	tests := []struct {
		name   string
		qte    float64
		pu     float64
		expect float64
	}{
		{"basic multiplication", 10, 50, 500},
		{"zero qty", 0, 100, 0},
		{"decimal values", 2.5, 100.50, 251.25},
		{"rounds to cents", 3, 1.335, 4.01},
		{"float noise", 0.1, 3, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalcLineTotal(tt.qte, tt.pu)
			if got != tt.expect {
				t.Errorf("CalcLineTotal(%v, %v) = %v, want %v", tt.qte, tt.pu, got, tt.expect)
			}
		})
	}
}

func TestCalcContractTotals(t *testing.T) {
	got := CalcContractTotals([]float64{10200, 38250, 25200}, []float64{18500}, 10, 5)

	want := ContractTotals{
		Gross:              73650,
		ApprovedVariations: 18500,
		Revised:            92150,
		Advance:            9215,
		Retention:          4607.5,
		Net:                87542.5,
	}
	if got != want {
		t.Errorf("CalcContractTotals() = %+v, want %+v", got, want)
	}
}

func TestCalcContractTotals_Empty(t *testing.T) {
	got := CalcContractTotals(nil, nil, 10, 5)
	if got != (ContractTotals{}) {
		t.Errorf("expected all zero totals, got %+v", got)
	}
}
