package registry

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dinoserve/dino/internal/core"
	"github.com/dinoserve/dino/internal/router"
)

func newTestSwappableRouter() (*router.SwappableAppRouter, error) {
	return router.NewSwappableAppRouter([]core.Route{
		{Method: "GET", Path: "/echo/:name", Handler: "echo"},
	})
}

type echoPool struct{ lastReq *core.Req }

func (p *echoPool) Run(name string, req *core.Req) (*core.Res, error) {
	p.lastReq = req
	body := "ok:" + name
	return &core.Res{Status: 200, Headers: map[string]string{"X-Handler": name}, Body: &body}, nil
}
func (p *echoPool) Dispose() {}

func TestDispatcher_FullRequestPath(t *testing.T) {
	reg := New()
	sr, err := newTestSwappableRouter()
	if err != nil {
		t.Fatal(err)
	}
	pool := &echoPool{}
	reg.Set("tenant.local", &Tenant{Router: sr, Pool: NewSwappableWorkerPool(pool)})

	d := NewDispatcher(reg)
	req := httptest.NewRequest("GET", "http://tenant.local:8080/echo/world?q=1", nil)
	req.Host = "tenant.local:8080"
	rec := httptest.NewRecorder()

	d.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok:echo" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("X-Handler") != "echo" {
		t.Errorf("missing X-Handler response header")
	}
	if pool.lastReq == nil || pool.lastReq.Query["q"] != "1" {
		t.Errorf("query not propagated: %+v", pool.lastReq)
	}
	foundName := false
	for _, p := range pool.lastReq.Params {
		if p.Key == "name" && p.Value == "world" {
			foundName = true
		}
	}
	if !foundName {
		t.Errorf("params not propagated: %+v", pool.lastReq.Params)
	}
}

func TestDispatcher_HostNotFoundIs404(t *testing.T) {
	reg := New()
	d := NewDispatcher(reg)

	req := httptest.NewRequest("GET", "http://nope.local/anything", nil)
	req.Host = "nope.local"
	rec := httptest.NewRecorder()

	d.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDispatcher_RouteNotFoundIs404(t *testing.T) {
	reg := New()
	sr, err := newTestSwappableRouter()
	if err != nil {
		t.Fatal(err)
	}
	reg.Set("tenant.local", &Tenant{Router: sr, Pool: NewSwappableWorkerPool(&echoPool{})})

	d := NewDispatcher(reg)
	req := httptest.NewRequest("GET", "http://tenant.local/missing", nil)
	req.Host = "tenant.local"
	rec := httptest.NewRecorder()

	d.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDispatcher_InvalidUTF8BodyIsDropped(t *testing.T) {
	reg := New()
	sr, err := newTestSwappableRouter()
	if err != nil {
		t.Fatal(err)
	}
	pool := &echoPool{}
	reg.Set("tenant.local", &Tenant{Router: sr, Pool: NewSwappableWorkerPool(pool)})

	d := NewDispatcher(reg)
	req := httptest.NewRequest("GET", "http://tenant.local/echo/x", bytes.NewReader([]byte{0xff, 0xfe, 0xfd}))
	req.Host = "tenant.local"
	rec := httptest.NewRecorder()

	d.ServeHTTP(rec, req)
	if pool.lastReq.Body != nil {
		t.Errorf("invalid UTF-8 body should be dropped, got %q", *pool.lastReq.Body)
	}
}
