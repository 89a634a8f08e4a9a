package store

import (
	"testing"

	"github.com/google/uuid"

	"terraconquest/errs"
	"terraconquest/models"
)

func TestSaveTerritoryControlRequiresExistingRow(t *testing.T) {
	st := NewMemory()
	territoryID := uuid.New()

	tc := &models.TerritoryControl{TerritoryID: territoryID, DefenseBonus: 1.0}
	if err := st.SaveTerritoryControl(tc); !errs.IsNotFound(err) {
		t.Fatalf("Expected not-found saving a control row that was never created, got %v", err)
	}
	if _, err := st.ControlByTerritory(territoryID); !errs.IsNotFound(err) {
		t.Fatalf("Expected no control row after the rejected save, got %v", err)
	}

	if err := st.CreateTerritoryControl(tc); err != nil {
		t.Fatalf("CreateTerritoryControl failed: %v", err)
	}
	tc.Units = 7
	if err := st.SaveTerritoryControl(tc); err != nil {
		t.Fatalf("SaveTerritoryControl after create failed: %v", err)
	}
	got, err := st.ControlByTerritory(territoryID)
	if err != nil {
		t.Fatalf("ControlByTerritory failed: %v", err)
	}
	if got.Units != 7 {
		t.Errorf("Expected 7 units after the update, got %d", got.Units)
	}
}
