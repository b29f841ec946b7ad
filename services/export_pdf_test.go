package services

import (
	"testing"
)

func TestGenerateContractPDF(t *testing.T) {
	result, err := GenerateContractPDF(sampleContractExport())
	if err != nil {
		t.Fatalf("GenerateContractPDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateContractPDF() returned empty bytes")
	}
	if len(result) > 4 && string(result[:5]) != "%PDF-" {
		t.Errorf("result does not start with PDF header, got %q", string(result[:5]))
	}
}

func TestGenerateContractPDF_NoBuildings(t *testing.T) {
	result, err := GenerateContractPDF(ContractExport{Title: "Empty", CreatedDate: "2025-01-15"})
	if err != nil {
		t.Fatalf("GenerateContractPDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateContractPDF() returned empty bytes")
	}
}
