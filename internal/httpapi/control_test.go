package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeGate struct{ active bool }

func (g *fakeGate) SetActive(v bool) { g.active = v }
func (g *fakeGate) Active() bool     { return g.active }

func TestControlServerGetActive(t *testing.T) {
	g := &fakeGate{active: true}
	c := &ControlServer{Gate: g}
	mux := http.NewServeMux()
	c.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/rest/active", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Body.String() != "True" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "True")
	}
}

func TestControlServerPostActive(t *testing.T) {
	g := &fakeGate{}
	c := &ControlServer{Gate: g}
	mux := http.NewServeMux()
	c.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/rest/active", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if !g.Active() {
		t.Error("gate not activated by POST /rest/active")
	}
	if rec.Body.String() != "True" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "True")
	}
}

func TestControlServerStop(t *testing.T) {
	g := &fakeGate{active: true}
	c := &ControlServer{Gate: g}
	mux := http.NewServeMux()
	c.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/rest/stop", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if g.Active() {
		t.Error("gate still active after POST /rest/stop")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
