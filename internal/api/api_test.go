package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/meocodex/evento-gestao-24-10-sub000/internal/auth"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/db"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/model"
	"github.com/meocodex/evento-gestao-24-10-sub000/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin)

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}

	return server, token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, wantStatus int, target any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		t.Fatalf("%s %s: expected %d, got %d (%v)", req.Method, req.URL.Path, wantStatus, resp.StatusCode, body)
	}
	if target != nil {
		json.NewDecoder(resp.Body).Decode(target)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	doJSON(t, req, http.StatusOK, nil)

	// The token must be dead afterwards.
	req, _ = authRequest("GET", server.URL+"/api/materials", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAllocationReturnFlow(t *testing.T) {
	server, token := setupTestServer(t)

	// Catalog a serialized material with one unit.
	var material model.Material
	req, _ := authRequest("POST", server.URL+"/api/materials", token, map[string]any{
		"name":    "Camera",
		"control": "serialized",
	})
	doJSON(t, req, http.StatusCreated, &material)

	req, _ = authRequest("POST", server.URL+"/api/materials/"+itoa(material.ID)+"/serials", token, map[string]string{
		"number": "SN-001",
	})
	doJSON(t, req, http.StatusCreated, nil)

	// Event with a one-camera checklist.
	var event model.Event
	req, _ = authRequest("POST", server.URL+"/api/events", token, map[string]string{"name": "Casamento"})
	doJSON(t, req, http.StatusCreated, &event)

	var line model.ChecklistLine
	req, _ = authRequest("POST", server.URL+"/api/events/"+itoa(event.ID)+"/checklist", token, map[string]any{
		"material_id":  material.ID,
		"required_qty": 1,
	})
	doJSON(t, req, http.StatusCreated, &line)

	// Allocate the unit to the event with Ana.
	var allocation model.Allocation
	req, _ = authRequest("POST", server.URL+"/api/allocations", token, map[string]any{
		"line_id":       line.ID,
		"serial_number": "SN-001",
		"mode":          "with-crew",
		"responsible":   "Ana",
	})
	doJSON(t, req, http.StatusCreated, &allocation)

	// A second allocation of the same unit conflicts.
	req, _ = authRequest("POST", server.URL+"/api/allocations", token, map[string]any{
		"line_id":       line.ID,
		"serial_number": "SN-001",
		"mode":          "with-crew",
		"responsible":   "Rui",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for double allocation, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Return damaged with justification.
	var returned model.Allocation
	req, _ = authRequest("POST", server.URL+"/api/allocations/"+itoa(allocation.ID)+"/return", token, map[string]any{
		"outcome": "returned-damaged",
		"notes":   "lens cracked",
	})
	doJSON(t, req, http.StatusOK, &returned)
	if returned.Outcome != model.OutcomeReturnedDamaged {
		t.Errorf("expected returned-damaged, got %q", returned.Outcome)
	}

	// Returning again conflicts.
	req, _ = authRequest("POST", server.URL+"/api/allocations/"+itoa(allocation.ID)+"/return", token, map[string]any{
		"outcome": "returned-ok",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for double return, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The unit sits in maintenance now.
	var summary model.MaterialSummary
	req, _ = authRequest("GET", server.URL+"/api/materials/"+itoa(material.ID)+"/summary", token, nil)
	doJSON(t, req, http.StatusOK, &summary)
	if summary.MaintenanceQty != 1 || summary.AvailableQty != 0 {
		t.Errorf("expected 1 in maintenance, got %+v", summary)
	}

	// The ledger has the full story for the event.
	var movements []model.Movement
	req, _ = authRequest("GET", server.URL+"/api/events/"+itoa(event.ID)+"/movements", token, nil)
	doJSON(t, req, http.StatusOK, &movements)
	if len(movements) != 2 {
		t.Errorf("expected 2 event movements, got %d", len(movements))
	}
}

func TestReturnMissingJustification(t *testing.T) {
	server, token := setupTestServer(t)

	var material model.Material
	req, _ := authRequest("POST", server.URL+"/api/materials", token, map[string]any{
		"name":        "Cadeiras",
		"control":     "quantity",
		"initial_qty": 10,
	})
	doJSON(t, req, http.StatusCreated, &material)

	var event model.Event
	req, _ = authRequest("POST", server.URL+"/api/events", token, map[string]string{"name": "Feira"})
	doJSON(t, req, http.StatusCreated, &event)

	var line model.ChecklistLine
	req, _ = authRequest("POST", server.URL+"/api/events/"+itoa(event.ID)+"/checklist", token, map[string]any{
		"material_id":  material.ID,
		"required_qty": 5,
	})
	doJSON(t, req, http.StatusCreated, &line)

	var allocation model.Allocation
	req, _ = authRequest("POST", server.URL+"/api/allocations", token, map[string]any{
		"line_id":  line.ID,
		"quantity": 5,
		"mode":     "advance-shipment",
		"carrier":  "TransLog",
	})
	doJSON(t, req, http.StatusCreated, &allocation)

	req, _ = authRequest("POST", server.URL+"/api/allocations/"+itoa(allocation.ID)+"/return", token, map[string]any{
		"outcome": "lost",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for lost without notes, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBatchReturnEndpoint(t *testing.T) {
	server, token := setupTestServer(t)

	var material model.Material
	req, _ := authRequest("POST", server.URL+"/api/materials", token, map[string]any{
		"name":    "Radio",
		"control": "serialized",
	})
	doJSON(t, req, http.StatusCreated, &material)

	for _, n := range []string{"SN-001", "SN-002"} {
		req, _ = authRequest("POST", server.URL+"/api/materials/"+itoa(material.ID)+"/serials", token, map[string]string{"number": n})
		doJSON(t, req, http.StatusCreated, nil)
	}

	var event model.Event
	req, _ = authRequest("POST", server.URL+"/api/events", token, map[string]string{"name": "Feira"})
	doJSON(t, req, http.StatusCreated, &event)

	var line model.ChecklistLine
	req, _ = authRequest("POST", server.URL+"/api/events/"+itoa(event.ID)+"/checklist", token, map[string]any{
		"material_id":  material.ID,
		"required_qty": 2,
	})
	doJSON(t, req, http.StatusCreated, &line)

	var ids []int64
	for _, n := range []string{"SN-001", "SN-002"} {
		var a model.Allocation
		req, _ = authRequest("POST", server.URL+"/api/allocations", token, map[string]any{
			"line_id":       line.ID,
			"serial_number": n,
			"mode":          "with-crew",
			"responsible":   "Ana",
		})
		doJSON(t, req, http.StatusCreated, &a)
		ids = append(ids, a.ID)
	}

	// One was already reconciled before the batch lands.
	req, _ = authRequest("POST", server.URL+"/api/allocations/"+itoa(ids[0])+"/return", token, map[string]any{
		"outcome": "returned-ok",
	})
	doJSON(t, req, http.StatusOK, nil)

	var results []model.BatchReturnResult
	req, _ = authRequest("POST", server.URL+"/api/returns/batch", token, map[string]any{
		"allocation_ids": ids,
		"outcome":        "returned-ok",
	})
	doJSON(t, req, http.StatusOK, &results)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].OK {
		t.Error("expected first item to fail (already returned)")
	}
	if !results[1].OK {
		t.Errorf("expected second item to succeed: %+v", results[1])
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, _ := http.Get(server.URL + "/api/materials")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create a crew user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "crew1", string(hash), model.RoleCrew)

	crewToken, _ := auth.GenerateToken(testJWTSecret, 1, "crew1", model.RoleCrew)

	// Crew cannot touch the catalog (manager+ required).
	req, _ := authRequest("POST", server.URL+"/api/materials", crewToken, map[string]any{
		"name":    "Test",
		"control": "quantity",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for crew creating material, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Crew cannot access /api/users.
	req, _ = authRequest("GET", server.URL+"/api/users", crewToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for crew accessing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
