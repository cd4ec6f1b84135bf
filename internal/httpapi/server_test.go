package httpapi_test

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/example/tradematch/internal/httpapi"
	"github.com/example/tradematch/internal/match"
	"github.com/example/tradematch/internal/service"
	"github.com/example/tradematch/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	engine := match.New(rand.New(rand.NewSource(11)))
	svc := service.New(st, st, engine, nil)
	return httpapi.Server{Svc: svc}.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerPartner(t *testing.T, h http.Handler, userID, category, area string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/partners", userID, map[string]string{
		"displayName":     "Partner " + userID,
		"category":        category,
		"serviceAreaCode": area,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register partner: status %d body %s", rec.Code, rec.Body.String())
	}
}

func submitPlumbingRequest(t *testing.T, h http.Handler, consumerID string) map[string]any {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests", consumerID, map[string]any{
		"title":       "Fix leaking pipe",
		"description": "Kitchen pipe leaks",
		"category":    "Plumbing",
		"postalCode":  "2100",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit request: status %d body %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)
}

// leadIDFor fetches the partner's single lead id via the leads endpoint.
func leadIDFor(t *testing.T, h http.Handler, partnerUserID string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodGet, "/v1/job-requests/leads", partnerUserID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list leads: status %d body %s", rec.Code, rec.Body.String())
	}
	leads := decode(t, rec)["leads"].([]any)
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1", len(leads))
	}
	return leads[0].(map[string]any)["id"].(string)
}

// ── Intake ─────────────────────────────────────────────────────────────────

func TestSubmitJobRequest_Registered(t *testing.T) {
	h := newTestServer(t)
	registerPartner(t, h, "partner-1", "Plumbing", "2100")

	resp := submitPlumbingRequest(t, h, "consumer-1")
	if resp["matchCount"].(float64) != 1 {
		t.Errorf("matchCount = %v, want 1", resp["matchCount"])
	}
	req := resp["jobRequest"].(map[string]any)
	if req["status"] != "open" {
		t.Errorf("status = %v, want open", req["status"])
	}
}

func TestSubmitJobRequest_Guest(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests", "", map[string]any{
		"title":      "Paint fence",
		"category":   "Painting",
		"postalCode": "9000",
		"guestName":  "Ana",
		"guestEmail": "ana@example.com",
		"guestPhone": "12345678",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["matchCount"].(float64) != 0 {
		t.Error("no candidates registered, matchCount should be 0")
	}
}

func TestSubmitJobRequest_MissingIdentity(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests", "", map[string]any{
		"title":      "Paint fence",
		"category":   "Painting",
		"postalCode": "9000",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if decode(t, rec)["error"] == "" {
		t.Error("validation failure must carry a message")
	}
}

func TestSubmitJobRequest_MissingPostalCode(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests", "consumer-1", map[string]any{
		"title":    "Paint fence",
		"category": "Painting",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

// ── Read surfaces ──────────────────────────────────────────────────────────

func TestMyRequests_RequiresAuth(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/job-requests/my-requests", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestMyRequests_ReturnsOwnRequestsWithMatches(t *testing.T) {
	h := newTestServer(t)
	registerPartner(t, h, "partner-1", "Plumbing", "2100")
	submitPlumbingRequest(t, h, "consumer-1")

	rec := doJSON(t, h, http.MethodGet, "/v1/job-requests/my-requests", "consumer-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	requests := decode(t, rec)["requests"].([]any)
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(requests))
	}
	matches := requests[0].(map[string]any)["matches"].([]any)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	partner := matches[0].(map[string]any)["partner"].(map[string]any)
	if partner["displayName"] == "" {
		t.Error("match missing partner display fields")
	}
}

func TestLeads_RequiresAuthAndProfile(t *testing.T) {
	h := newTestServer(t)
	if rec := doJSON(t, h, http.MethodGet, "/v1/job-requests/leads", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no identity: status %d, want 401", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/v1/job-requests/leads", "not-a-partner", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("no profile: status %d, want 404", rec.Code)
	}
}

// ── Quote submission ───────────────────────────────────────────────────────

func TestQuoteLifecycle(t *testing.T) {
	h := newTestServer(t)
	registerPartner(t, h, "partner-1", "Plumbing", "2100")
	submitPlumbingRequest(t, h, "consumer-1")
	leadID := leadIDFor(t, h, "partner-1")

	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests/leads/"+leadID+"/quote", "partner-1", map[string]any{
		"price":   1200,
		"message": "Can start Monday",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	quote := decode(t, rec)["quote"].(map[string]any)
	if quote["status"] != "sent" {
		t.Errorf("quote status = %v, want sent", quote["status"])
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/job-requests/leads", "partner-1", nil)
	lead := decode(t, rec)["leads"].([]any)[0].(map[string]any)
	if lead["status"] != "quoted" {
		t.Errorf("lead status = %v, want quoted", lead["status"])
	}
	if lead["quote"] == nil {
		t.Error("lead view missing the submitted quote")
	}
}

func TestQuote_NotOwner(t *testing.T) {
	h := newTestServer(t)
	registerPartner(t, h, "partner-1", "Plumbing", "2100")
	registerPartner(t, h, "partner-2", "Roofing", "2100")
	submitPlumbingRequest(t, h, "consumer-1")
	leadID := leadIDFor(t, h, "partner-1")

	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests/leads/"+leadID+"/quote", "partner-2", map[string]any{
		"price": 900,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/job-requests/leads", "partner-1", nil)
	lead := decode(t, rec)["leads"].([]any)[0].(map[string]any)
	if lead["status"] != "pending" {
		t.Errorf("lead status = %v after forbidden quote, want pending", lead["status"])
	}
}

func TestQuote_UnknownMatch(t *testing.T) {
	h := newTestServer(t)
	registerPartner(t, h, "partner-1", "Plumbing", "2100")
	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests/leads/no-such-match/quote", "partner-1", map[string]any{
		"price": 100,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestQuote_InvalidPrice(t *testing.T) {
	h := newTestServer(t)
	registerPartner(t, h, "partner-1", "Plumbing", "2100")
	submitPlumbingRequest(t, h, "consumer-1")
	leadID := leadIDFor(t, h, "partner-1")

	rec := doJSON(t, h, http.MethodPost, "/v1/job-requests/leads/"+leadID+"/quote", "partner-1", map[string]any{
		"price": -5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestQuote_DuplicateConflicts(t *testing.T) {
	h := newTestServer(t)
	registerPartner(t, h, "partner-1", "Plumbing", "2100")
	submitPlumbingRequest(t, h, "consumer-1")
	leadID := leadIDFor(t, h, "partner-1")

	first := doJSON(t, h, http.MethodPost, "/v1/job-requests/leads/"+leadID+"/quote", "partner-1", map[string]any{"price": 1200})
	if first.Code != http.StatusCreated {
		t.Fatalf("first quote: status %d", first.Code)
	}
	second := doJSON(t, h, http.MethodPost, "/v1/job-requests/leads/"+leadID+"/quote", "partner-1", map[string]any{"price": 900})
	if second.Code != http.StatusConflict {
		t.Fatalf("second quote: status %d, want 409", second.Code)
	}
}

// ── Deletion ───────────────────────────────────────────────────────────────

func TestDeleteJobRequest(t *testing.T) {
	h := newTestServer(t)
	resp := submitPlumbingRequest(t, h, "consumer-1")
	id := resp["jobRequest"].(map[string]any)["id"].(string)

	if rec := doJSON(t, h, http.MethodDelete, "/v1/job-requests/"+id, "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated delete: status %d, want 401", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodDelete, "/v1/job-requests/"+id, "consumer-2", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status %d, want 403", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodDelete, "/v1/job-requests/"+id, "consumer-1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("owner delete: status %d, want 204", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodDelete, "/v1/job-requests/"+id, "consumer-1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: status %d, want 404", rec.Code)
	}
}
