package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jmerrifield20/seasense/internal/threat"
)

func TestScore_200_appendsLedger(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/score/9123456", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res threat.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Score != 60 || res.Level != 2 {
		t.Errorf("score: got %d/%d, want 60/2", res.Score, res.Level)
	}
	if len(res.CheckedRules) != 3 || len(res.ManualRules) != 4 {
		t.Errorf("rules: %d checked, %d manual", len(res.CheckedRules), len(res.ManualRules))
	}
	if got := w.Header().Get("X-Ledger-Index"); got != "1" {
		t.Errorf("X-Ledger-Index: got %q, want 1", got)
	}

	e, err := env.ledger.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if e.IMO != "9123456" {
		t.Errorf("ledger imo: %q", e.IMO)
	}
}

func TestScore_404(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/score/1111111", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if n, _ := env.ledger.Len(context.Background()); n != 1 {
		t.Errorf("ledger grew on a miss: %d entries", n)
	}
}

func TestScore_nonTanker(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/score/9234567", nil)
	var res threat.Result
	json.Unmarshal(w.Body.Bytes(), &res)
	if res.Score != 0 || res.Level != 0 {
		t.Errorf("got %d/%d, want 0/0", res.Score, res.Level)
	}
}

func TestScoreHeaders(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/score/headers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var headers []string
	json.Unmarshal(w.Body.Bytes(), &headers)
	if len(headers) != 11 || headers[0] != "IMO" || headers[10] != "Threat Level" {
		t.Errorf("headers: %v", headers)
	}
}

func TestScoreRuleset(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/score/ruleset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var cfg threat.Config
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Door.Name != "Hazardous Liquid Tanker" || len(cfg.Rules) != 2 || len(cfg.Levels) != 4 {
		t.Errorf("ruleset: %+v", cfg)
	}
}
