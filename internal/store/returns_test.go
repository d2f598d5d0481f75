package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/db"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
)

// allocateQuantity seeds a quantity material, an event with one checklist
// line, and an open reservation against it.
func allocateQuantity(t *testing.T, ctx context.Context, database *sql.DB, initial, allocated int) (*model.Material, *model.Allocation) {
	t.Helper()
	m, err := CreateMaterial(ctx, database, "Cadeiras", "furniture", model.ControlQuantity, "", initial, nil)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	event, err := CreateEvent(ctx, database, "Feira", nil, nil)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	line, err := AddChecklistLine(ctx, database, event.ID, m.ID, allocated)
	if err != nil {
		t.Fatalf("AddChecklistLine: %v", err)
	}
	alloc, err := Allocate(ctx, database, line.ID, "", allocated, model.ModeAdvanceShipment, "TransLog", "", nil)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return m, alloc
}

func TestReturnOKQuantityFull(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, alloc := allocateQuantity(t, ctx, database, 50, 20)

	got, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedOK, "", nil, nil, nil)
	if err != nil {
		t.Fatalf("RegisterReturn: %v", err)
	}
	if got.Status != model.AllocationReturned || got.Outcome != model.OutcomeReturnedOK {
		t.Errorf("expected returned/returned-ok, got %s/%s", got.Status, got.Outcome)
	}

	m, _ = GetMaterial(ctx, database, m.ID)
	if m.TotalQty != 50 || m.AvailableQty != 50 {
		t.Errorf("expected 50/50 after full return, got %d/%d", m.TotalQty, m.AvailableQty)
	}
}

func TestReturnOKQuantityShortfall(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Allocate 10 of 50, bring back 7: the 3 missing are written off.
	m, alloc := allocateQuantity(t, ctx, database, 50, 10)

	returned := 7
	got, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedOK, "", nil, &returned, nil)
	if err != nil {
		t.Fatalf("RegisterReturn: %v", err)
	}
	if got.ReturnedQty == nil || *got.ReturnedQty != 7 {
		t.Errorf("expected returned_qty 7, got %v", got.ReturnedQty)
	}

	m, _ = GetMaterial(ctx, database, m.ID)
	if m.TotalQty != 47 || m.AvailableQty != 47 {
		t.Errorf("expected 47/47 after shortfall, got %d/%d", m.TotalQty, m.AvailableQty)
	}
}

func TestReturnedQtyBounds(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, alloc := allocateQuantity(t, ctx, database, 50, 10)

	over := 11
	_, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedOK, "", nil, &over, nil)
	if !errors.Is(err, model.ErrInvalidReturnedQuantity) {
		t.Errorf("expected ErrInvalidReturnedQuantity over allocation, got %v", err)
	}

	negative := -1
	_, err = RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedOK, "", nil, &negative, nil)
	if !errors.Is(err, model.ErrInvalidReturnedQuantity) {
		t.Errorf("expected ErrInvalidReturnedQuantity negative, got %v", err)
	}

	// The allocation is still open after the rejected attempts.
	got, _ := GetAllocation(ctx, database, alloc.ID)
	if got.Status != model.AllocationReserved {
		t.Errorf("expected allocation still reserved, got %s", got.Status)
	}
}

func TestReturnLostQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, alloc := allocateQuantity(t, ctx, database, 50, 10)

	_, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeLost, "truck never arrived", nil, nil, nil)
	if err != nil {
		t.Fatalf("RegisterReturn: %v", err)
	}

	m, _ = GetMaterial(ctx, database, m.ID)
	if m.TotalQty != 40 || m.AvailableQty != 40 {
		t.Errorf("expected 40/40 after loss, got %d/%d", m.TotalQty, m.AvailableQty)
	}
}

func TestReturnConsumedQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, alloc := allocateQuantity(t, ctx, database, 50, 10)

	_, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeConsumed, "", nil, nil, nil)
	if err != nil {
		t.Fatalf("RegisterReturn: %v", err)
	}

	m, _ = GetMaterial(ctx, database, m.ID)
	if m.TotalQty != 40 || m.AvailableQty != 40 {
		t.Errorf("expected 40/40 after consumption, got %d/%d", m.TotalQty, m.AvailableQty)
	}
}

func TestReturnRequiresJustification(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, alloc := allocateQuantity(t, ctx, database, 50, 10)

	_, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedDamaged, "", nil, nil, nil)
	if !errors.Is(err, model.ErrMissingJustification) {
		t.Errorf("expected ErrMissingJustification for damaged, got %v", err)
	}

	_, err = RegisterReturn(ctx, database, alloc.ID, model.OutcomeLost, "", nil, nil, nil)
	if !errors.Is(err, model.ErrMissingJustification) {
		t.Errorf("expected ErrMissingJustification for lost, got %v", err)
	}
}

func TestReturnIdempotence(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, alloc := allocateQuantity(t, ctx, database, 50, 10)

	if _, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedOK, "", nil, nil, nil); err != nil {
		t.Fatalf("first RegisterReturn: %v", err)
	}

	_, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeReturnedOK, "", nil, nil, nil)
	if !errors.Is(err, model.ErrAlreadyReturned) {
		t.Errorf("expected ErrAlreadyReturned, got %v", err)
	}

	// Stock was adjusted exactly once.
	m, _ = GetMaterial(ctx, database, m.ID)
	if m.AvailableQty != 50 {
		t.Errorf("expected available 50 after single return, got %d", m.AvailableQty)
	}
}

func TestReturnSerializedOutcomes(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, "Camera", "av", model.ControlSerialized, "", 0, nil)
	for _, n := range []string{"SN-001", "SN-002", "SN-003"} {
		CreateSerial(ctx, database, m.ID, n, "", "", nil)
	}
	event, _ := CreateEvent(ctx, database, "Feira", nil, nil)
	line, _ := AddChecklistLine(ctx, database, event.ID, m.ID, 3)

	a1, _ := Allocate(ctx, database, line.ID, "SN-001", 0, model.ModeWithCrew, "", "Ana", nil)
	a2, _ := Allocate(ctx, database, line.ID, "SN-002", 0, model.ModeWithCrew, "", "Ana", nil)
	a3, _ := Allocate(ctx, database, line.ID, "SN-003", 0, model.ModeWithCrew, "", "Ana", nil)

	if _, err := RegisterReturn(ctx, database, a1.ID, model.OutcomeReturnedOK, "", nil, nil, nil); err != nil {
		t.Fatalf("return ok: %v", err)
	}
	if _, err := RegisterReturn(ctx, database, a2.ID, model.OutcomeReturnedDamaged, "lens cracked", nil, nil, nil); err != nil {
		t.Fatalf("return damaged: %v", err)
	}
	if _, err := RegisterReturn(ctx, database, a3.ID, model.OutcomeLost, "missing from truck", nil, nil, nil); err != nil {
		t.Fatalf("return lost: %v", err)
	}

	for _, tc := range []struct {
		number string
		status string
	}{
		{"SN-001", model.SerialAvailable},
		{"SN-002", model.SerialMaintenance},
		{"SN-003", model.SerialLost},
	} {
		s, _ := GetSerial(ctx, database, m.ID, tc.number)
		if s.Status != tc.status {
			t.Errorf("%s: expected %s, got %s", tc.number, tc.status, s.Status)
		}
		if s.EventID != nil {
			t.Errorf("%s: expected event link cleared", tc.number)
		}
	}

	// Total keeps counting every unit; availability shows the breakdown.
	m, _ = GetMaterial(ctx, database, m.ID)
	if m.TotalQty != 3 || m.AvailableQty != 1 {
		t.Errorf("expected 3 total / 1 available, got %d/%d", m.TotalQty, m.AvailableQty)
	}
}

func TestReturnSerializedCannotBeConsumed(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, "Camera", "av", model.ControlSerialized, "", 0, nil)
	CreateSerial(ctx, database, m.ID, "SN-001", "", "", nil)
	event, _ := CreateEvent(ctx, database, "Feira", nil, nil)
	line, _ := AddChecklistLine(ctx, database, event.ID, m.ID, 1)
	alloc, _ := Allocate(ctx, database, line.ID, "SN-001", 0, model.ModeWithCrew, "", "Ana", nil)

	_, err := RegisterReturn(ctx, database, alloc.ID, model.OutcomeConsumed, "", nil, nil, nil)
	if !errors.Is(err, model.ErrWrongControlMode) {
		t.Errorf("expected ErrWrongControlMode, got %v", err)
	}

	// The unit is still out with the crew.
	s, _ := GetSerial(ctx, database, m.ID, "SN-001")
	if s.Status != model.SerialInUse {
		t.Errorf("expected serial still in-use, got %s", s.Status)
	}
}

func TestReturnRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// SN-001 goes out with Ana, comes back fine, and can go out again.
	m, _ := CreateMaterial(ctx, database, "Camera", "av", model.ControlSerialized, "", 0, nil)
	CreateSerial(ctx, database, m.ID, "SN-001", "", "", nil)
	event, _ := CreateEvent(ctx, database, "Feira", nil, nil)
	line, _ := AddChecklistLine(ctx, database, event.ID, m.ID, 1)

	first, _ := Allocate(ctx, database, line.ID, "SN-001", 0, model.ModeWithCrew, "", "Ana", nil)
	if _, err := RegisterReturn(ctx, database, first.ID, model.OutcomeReturnedOK, "", nil, nil, nil); err != nil {
		t.Fatalf("RegisterReturn: %v", err)
	}

	second, err := Allocate(ctx, database, line.ID, "SN-001", 0, model.ModeWithCrew, "", "Rui", nil)
	if err != nil {
		t.Fatalf("second Allocate: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a fresh allocation row")
	}
}

func TestBatchReturnPartialFailure(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, "Camera", "av", model.ControlSerialized, "", 0, nil)
	for _, n := range []string{"SN-001", "SN-002", "SN-003"} {
		CreateSerial(ctx, database, m.ID, n, "", "", nil)
	}
	event, _ := CreateEvent(ctx, database, "Feira", nil, nil)
	line, _ := AddChecklistLine(ctx, database, event.ID, m.ID, 3)

	a1, _ := Allocate(ctx, database, line.ID, "SN-001", 0, model.ModeWithCrew, "", "Ana", nil)
	a2, _ := Allocate(ctx, database, line.ID, "SN-002", 0, model.ModeWithCrew, "", "Ana", nil)
	a3, _ := Allocate(ctx, database, line.ID, "SN-003", 0, model.ModeWithCrew, "", "Ana", nil)

	// One of the three was already reconciled by someone else.
	if _, err := RegisterReturn(ctx, database, a2.ID, model.OutcomeReturnedOK, "", nil, nil, nil); err != nil {
		t.Fatalf("RegisterReturn: %v", err)
	}

	results := RegisterReturnBatch(ctx, database, []int64{a1.ID, a2.ID, a3.ID}, model.OutcomeReturnedOK, "", nil, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK || !results[2].OK {
		t.Errorf("expected first and third to succeed: %+v", results)
	}
	if results[1].OK {
		t.Error("expected second to fail")
	}

	// The siblings' successes were committed despite the failure.
	for i, id := range []int64{a1.ID, a3.ID} {
		got, _ := GetAllocation(ctx, database, id)
		if got.Status != model.AllocationReturned {
			t.Errorf("allocation %d: expected returned, got %s", i, got.Status)
		}
	}

	m, _ = GetMaterial(ctx, database, m.ID)
	if m.AvailableQty != 3 {
		t.Errorf("expected all 3 available, got %d", m.AvailableQty)
	}
}
