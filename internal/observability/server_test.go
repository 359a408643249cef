package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func probe(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestServer_Healthz(t *testing.T) {
	s := NewServer(":0", nil)
	if rr := probe(t, s, "/healthz"); rr.Code != http.StatusOK {
		t.Errorf("healthz: got %d", rr.Code)
	}
}

func TestServer_ReadyzReflectsCheck(t *testing.T) {
	var down error
	s := NewServer(":0", func() error { return down })

	if rr := probe(t, s, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("expected ready, got %d", rr.Code)
	}

	down = errors.New("storage backend: disk gone")
	rr := probe(t, s, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while backend is down, got %d", rr.Code)
	}
	if rr.Body.String() != "storage backend: disk gone" {
		t.Errorf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_ReadyzWithoutCheck(t *testing.T) {
	s := NewServer(":0", nil)
	if rr := probe(t, s, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("nil check must report ready, got %d", rr.Code)
	}
}

func TestServer_MetricsExposed(t *testing.T) {
	s := NewServer(":0", nil)
	if rr := probe(t, s, "/metrics"); rr.Code != http.StatusOK {
		t.Errorf("metrics: got %d", rr.Code)
	}
}
