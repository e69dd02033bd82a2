package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/healthline/healthline/internal/platform/auth"
)

func newTestHandler(engine Engine) *Handler {
	return NewHandler(newTestBridge(engine, nil))
}

func postAsk(t *testing.T, h *Handler, ctx context.Context, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return rec, h.Ask(e.NewContext(req, rec))
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_Ask(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	rec, err := postAsk(t, h, context.Background(), `{"prompt":"hello"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res AskResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Response != "echo: hello" || res.SessionID == "" || len(res.History) != 2 {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
}

func TestHandler_Ask_TokenSubjectOverridesUserName(t *testing.T) {
	eng := &fakeEngine{}
	h := newTestHandler(eng)

	ctx := context.WithValue(context.Background(), auth.UserIDKey, "jane.doe")
	if _, err := postAsk(t, h, ctx, `{"prompt":"hi","user_name":"mallory"}`); err != nil {
		t.Fatal(err)
	}
	if eng.invs[0].UserID != "jane.doe" {
		t.Errorf("expected token subject, got %q", eng.invs[0].UserID)
	}
	if eng.callers[0].Role != auth.RolePatient {
		t.Errorf("token caller should be resolved, got %+v", eng.callers[0])
	}
}

func TestHandler_Ask_ForeignSessionForbidden(t *testing.T) {
	h := newTestHandler(&fakeEngine{})
	if _, err := postAsk(t, h, context.Background(), `{"prompt":"hi","session_id":"s1","user_name":"jane.doe"}`); err != nil {
		t.Fatal(err)
	}
	_, err := postAsk(t, h, context.Background(), `{"prompt":"hi","session_id":"s1","user_name":"mallory"}`)
	if code := httpCode(t, err); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestHandler_Ask_Errors(t *testing.T) {
	_, err := postAsk(t, newTestHandler(&fakeEngine{}), context.Background(), `{"prompt":""}`)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Errorf("empty prompt: expected 400, got %d", code)
	}

	_, err = postAsk(t, newTestHandler(&fakeEngine{err: errors.New("down")}), context.Background(), `{"prompt":"hi"}`)
	if code := httpCode(t, err); code != http.StatusBadGateway {
		t.Errorf("engine failure: expected 502, got %d", code)
	}
}

func TestHandler_History(t *testing.T) {
	h := newTestHandler(&fakeEngine{})
	if _, err := postAsk(t, h, context.Background(), `{"prompt":"hello","session_id":"abc"}`); err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ask/history?session_id=abc", nil)
	rec := httptest.NewRecorder()
	if err := h.History(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		SessionID string        `json:"session_id"`
		History   []HistoryItem `json:"history"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.SessionID != "abc" || len(body.History) != 2 {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/ask/history?session_id=missing", nil)
	err := h.History(e.NewContext(req, httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_HistoryByUser(t *testing.T) {
	h := newTestHandler(&fakeEngine{})
	if _, err := postAsk(t, h, context.Background(), `{"prompt":"hello","user_name":"jane.doe"}`); err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ask/history/by_user?user_id=jane.doe", nil)
	rec := httptest.NewRecorder()
	if err := h.HistoryByUser(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body UserHistory
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.UserID != "jane.doe" || len(body.Sessions) != 1 || len(body.History) != 2 {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/ask/history/by_user?user_id=ghost", nil)
	err := h.HistoryByUser(e.NewContext(req, httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}
