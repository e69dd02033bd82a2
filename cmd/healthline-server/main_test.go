package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/healthline/healthline/internal/agent"
	"github.com/healthline/healthline/internal/agent/memory"
	"github.com/healthline/healthline/internal/config"
	"github.com/healthline/healthline/internal/domain/conversation"
	"github.com/healthline/healthline/internal/domain/identity"
	"github.com/healthline/healthline/internal/domain/medication"
	"github.com/healthline/healthline/internal/platform/civil"
)

// echoModel answers every prompt with a fixed text and never calls tools.
type echoModel struct {
	mu    sync.Mutex
	calls int
}

func (m *echoModel) Name() string { return "echo" }

func (m *echoModel) Generate(_ context.Context, req *agent.Request) (*agent.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return &agent.Response{Content: agent.ModelText(fmt.Sprintf("reply %d", m.calls))}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "development",
		StoreDriver:    "memory",
		AuthTokenTTL:   time.Hour,
		BcryptCost:     4,
		AgentMaxSteps:  5,
		CORSOrigins:    []string{"http://localhost:8501"},
		LogLevel:       "error",
		RequestTimeout: 10 * time.Second,
		BodyLimit:      "1M",
	}
}

func newTestServer(t *testing.T) (*echo.Echo, *backend) {
	t.Helper()
	store := newMemoryBackend()
	memories := map[string]memory.Service{
		conversation.Concierge.Key: memory.NewInMemory(),
		conversation.Doctor.Key:    memory.NewInMemory(),
	}
	e, err := newServer(testConfig(), zerolog.Nop(), store, &echoModel{}, memories)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e, store
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	e, _ := newTestServer(t)

	for _, path := range []string{"/", "/health", "/health/db", "/metrics"} {
		rec := do(t, e, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
	rec := do(t, e, http.MethodGet, "/health/db", "")
	if !strings.Contains(rec.Body.String(), `"memory"`) {
		t.Errorf("expected memory store in db health, got %s", rec.Body.String())
	}
}

func TestServer_CreatePatientLoginAndProfile(t *testing.T) {
	e, _ := newTestServer(t)

	birthdate := civil.Today().AddYears(-10)
	body := fmt.Sprintf(`{"action":"create_patient","payload":{"full_name":"Tomas  Okafor","birthdate":%q,
		"gender":"male","contact_number":"555-0100","address":"9 Pine Rd","emergency_contact":"555-0101"}}`, birthdate)
	rec := do(t, e, http.MethodPost, "/api/v1/actions/handle_patient_action", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Status string `json:"status"`
		Data   struct {
			PatientID int64 `json:"patient_id"`
			User      struct {
				Username string `json:"username"`
				Password string `json:"password"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Status != "success" || created.Data.User.Username != "tomas.okafor" {
		t.Fatalf("unexpected create result: %s", rec.Body.String())
	}
	if len(created.Data.User.Password) != 8 {
		t.Errorf("expected 8 character generated password, got %q", created.Data.User.Password)
	}

	login := fmt.Sprintf(`{"username":%q,"password":%q}`, created.Data.User.Username, created.Data.User.Password)
	rec = do(t, e, http.MethodPost, "/auth/login", login)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var loggedIn struct {
		Role     string `json:"role"`
		Patients []struct {
			ID int64 `json:"id"`
		} `json:"patients"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loggedIn); err != nil {
		t.Fatal(err)
	}
	if loggedIn.Role != "patient" || len(loggedIn.Patients) != 1 || loggedIn.Patients[0].ID != created.Data.PatientID {
		t.Errorf("unexpected login result: %s", rec.Body.String())
	}
	if loggedIn.Token == "" {
		t.Error("expected a session token")
	}

	rec = do(t, e, http.MethodPost, "/auth/login", `{"username":"tomas.okafor","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodGet, fmt.Sprintf("/patients/%d", created.Data.PatientID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var prof struct {
		Patient struct {
			AgeGroup      string `json:"age_group"`
			RequiresCarer bool   `json:"requires_carer"`
		} `json:"patient"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
		t.Fatal(err)
	}
	if prof.Patient.AgeGroup != identity.AgeGroupMinor || !prof.Patient.RequiresCarer || len(prof.Warnings) == 0 {
		t.Errorf("expected minor needing a carer with a warning, got %s", rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/patients/9999", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing patient: expected 404, got %d", rec.Code)
	}
}

func TestServer_ChatHistoryPerSession(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/ask", `{"prompt":"hello","session_id":"s-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first ask: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, e, http.MethodPost, "/ask", `{"prompt":"and again","session_id":"s-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second ask: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res struct {
		SessionID string `json:"session_id"`
		History   []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.SessionID != "s-1" {
		t.Errorf("expected session s-1, got %s", res.SessionID)
	}
	if len(res.History) != 4 {
		t.Fatalf("expected 4 history items, got %d", len(res.History))
	}
	want := []string{"user", "assistant", "user", "assistant"}
	for i, item := range res.History {
		if item.Role != want[i] {
			t.Errorf("history[%d].role = %s, want %s", i, item.Role, want[i])
		}
	}
	if res.History[0].Content != "hello" || res.History[2].Content != "and again" {
		t.Errorf("unexpected history order: %+v", res.History)
	}

	rec = do(t, e, http.MethodGet, "/ask/history?session_id=s-1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("history: expected 200, got %d", rec.Code)
	}

	// personas do not share sessions
	rec = do(t, e, http.MethodGet, "/doctor/ask/history?session_id=s-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("doctor history: expected 404, got %d", rec.Code)
	}
}

func TestServer_EmptyPromptRejected(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/doctor/ask", `{"prompt":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestExportMedications(t *testing.T) {
	store := newMemoryBackend()
	ctx := context.Background()

	p := &identity.Patient{FullName: "Ana Lima", Birthdate: civil.Date{Year: 1950, Month: time.May, Day: 2}}
	if err := store.patients.Create(ctx, p); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"metformin", "aspirin"} {
		s := &medication.Schedule{
			PatientID: p.ID, MedicationName: name, Dosage: "1 tab", Frequency: "daily",
			IntakeTime: "08:00:00",
			StartDate:  civil.Date{Year: 2024, Month: time.January, Day: 1},
			EndDate:    civil.Date{Year: 2024, Month: time.March, Day: 1},
			Status:     medication.StatusPending,
		}
		if err := store.medications.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	out := filepath.Join(t.TempDir(), "schedules.xlsx")
	n, err := exportMedications(ctx, store, out, p.ID)
	if err != nil {
		t.Fatalf("exportMedications: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 schedules, got %d", n)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][2] != "Ana Lima" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestMigrationSource_Embedded(t *testing.T) {
	src := migrationSource("")
	if _, err := src.Open("001_records.sql"); err != nil {
		t.Errorf("expected embedded 001_records.sql: %v", err)
	}
}
