package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rcontcode/expense-evolution-ai-sub009/internal/config"
)

func TestServer_Healthz(t *testing.T) {
	e := New(config.Config{})
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestUtterance_MethodNotAllowed(t *testing.T) {
	e := New(config.Config{})
	r := httptest.NewRequest(http.MethodGet, "/utterance", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestUtterance_BadJSON(t *testing.T) {
	e := New(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/utterance", strings.NewReader("not-json"))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUtterance_EmptyText(t *testing.T) {
	e := New(config.Config{})
	r := httptest.NewRequest(http.MethodPost, "/utterance", strings.NewReader(`{"text":""}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUtterance_TypedPipeline(t *testing.T) {
	// No executor or LLM configured: a parse miss still answers with canned
	// fallback text instead of failing.
	e := New(config.Config{Language: "en"})
	r := httptest.NewRequest(http.MethodPost, "/utterance", strings.NewReader(`{"text":"tell me something"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp utteranceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply == "" {
		t.Fatalf("expected a non-empty reply")
	}
	if resp.Waiting {
		t.Fatalf("fallback reply must not open the confirmation gate")
	}
}

func TestUtterance_ConfirmationRoundTrip(t *testing.T) {
	e := New(config.Config{Language: "en"})

	post := func(text string) utteranceResponse {
		t.Helper()
		r := httptest.NewRequest(http.MethodPost, "/utterance", strings.NewReader(`{"text":"`+text+`"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", text, w.Code)
		}
		var resp utteranceResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	got := post("duplicate my last expense")
	if !got.Waiting {
		t.Fatalf("duplicate should leave a confirmation pending")
	}
	got = post("no")
	if got.Waiting {
		t.Fatalf("cancel should close the gate")
	}
}
