package core

import "testing"

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Owner:     "u1",
		Amount:    Money{Cents: 1050},
		Category:  "food",
		Timestamp: "2024-01-01",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Owner: "", Amount: Money{Cents: 1}, Category: "c", Timestamp: "2024-01-01"},
		{Owner: "u1", Amount: Money{Cents: 1}, Category: "", Timestamp: "2024-01-01"},
		{Owner: "u1", Amount: Money{Cents: 1}, Category: "c", Timestamp: "  "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionValidateNegativeAmount(t *testing.T) {
	// Refunds carry negative amounts and are valid ledger entries.
	tx := Transaction{Owner: "u1", Amount: Money{Cents: -500}, Category: "refund", Timestamp: "2024-02-02"}
	if err := tx.Validate(); err != nil {
		t.Fatalf("expected ok for negative amount, got %v", err)
	}
}
