package store

import (
	"context"
	"testing"
	"time"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/db"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

func TestCreateEventAndChecklist(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	starts := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	ends := starts.Add(8 * time.Hour)
	event, err := CreateEvent(ctx, database, "Feira de Outono", &starts, &ends)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	chairs, _ := CreateMaterial(ctx, database, "Cadeiras", "furniture", model.ControlQuantity, "", 50, nil)
	cameras, _ := CreateMaterial(ctx, database, "Camera", "av", model.ControlSerialized, "", 0, nil)

	if _, err := AddChecklistLine(ctx, database, event.ID, chairs.ID, 20); err != nil {
		t.Fatalf("AddChecklistLine chairs: %v", err)
	}
	if _, err := AddChecklistLine(ctx, database, event.ID, cameras.ID, 2); err != nil {
		t.Fatalf("AddChecklistLine cameras: %v", err)
	}

	lines, err := ListChecklist(ctx, database, event.ID)
	if err != nil {
		t.Fatalf("ListChecklist: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l.AllocatedQty != 0 {
			t.Errorf("line %d: expected nothing allocated yet, got %d", l.ID, l.AllocatedQty)
		}
	}
}

func TestAddChecklistLineValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	event, _ := CreateEvent(ctx, database, "Feira", nil, nil)
	m, _ := CreateMaterial(ctx, database, "Cadeiras", "furniture", model.ControlQuantity, "", 10, nil)

	if _, err := AddChecklistLine(ctx, database, event.ID, m.ID, 0); err == nil {
		t.Error("expected zero required quantity to be rejected")
	}
	if _, err := AddChecklistLine(ctx, database, event.ID, 9999, 5); err == nil {
		t.Error("expected unknown material to be rejected")
	}
	if _, err := AddChecklistLine(ctx, database, 9999, m.ID, 5); err == nil {
		t.Error("expected unknown event to be rejected")
	}
}

func TestChecklistAllocatedCountsReturnedLines(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, "Cadeiras", "furniture", model.ControlQuantity, "", 50, nil)
	event, _ := CreateEvent(ctx, database, "Feira", nil, nil)
	line, _ := AddChecklistLine(ctx, database, event.ID, m.ID, 20)

	alloc, _ := Allocate(ctx, database, line.ID, "", 20, model.ModeAdvanceShipment, "TransLog", "", nil)
	if _, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedOK, "", nil, nil, nil); err != nil {
		t.Fatalf("RegisterReturn: %v", err)
	}

	// A returned allocation still counts against the line; only
	// deallocation frees it.
	line, _ = GetChecklistLine(ctx, database, line.ID)
	if line.AllocatedQty != 20 {
		t.Errorf("expected allocated 20 after return, got %d", line.AllocatedQty)
	}
}

func TestDeleteChecklistLineRefusedWithAllocations(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, "Cadeiras", "furniture", model.ControlQuantity, "", 50, nil)
	event, _ := CreateEvent(ctx, database, "Feira", nil, nil)
	line, _ := AddChecklistLine(ctx, database, event.ID, m.ID, 20)

	alloc, _ := Allocate(ctx, database, line.ID, "", 20, model.ModeAdvanceShipment, "TransLog", "", nil)
	if err := DeleteChecklistLine(ctx, database, line.ID); err == nil {
		t.Error("expected deletion refused with allocation present")
	}

	if err := Deallocate(ctx, database, alloc.ID, nil); err != nil {
		t.Fatalf("Deallocate: %v", err)
	}
	if err := DeleteChecklistLine(ctx, database, line.ID); err != nil {
		t.Errorf("expected deletion after deallocation, got %v", err)
	}
}
