package registry

import (
	"testing"

	"github.com/dinoserve/dino/internal/core"
)

func TestStripPort(t *testing.T) {
	cases := map[string]string{
		"example.com:8080": "example.com",
		"example.com":      "example.com",
		"[::1]:8080":       "[::1]",
		"[::1]":            "[::1]",
	}
	for in, want := range cases {
		if got := StripPort(in); got != want {
			t.Errorf("StripPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistry_GetStripsPortAndReturnsHostNotFound(t *testing.T) {
	reg := New()
	ar, err := newFakeRouterTenant(t)
	if err != nil {
		t.Fatal(err)
	}
	reg.Set("example.com", ar)

	if _, err := reg.Get("example.com:8080"); err != nil {
		t.Errorf("Get with port suffix should still match: %v", err)
	}

	_, err = reg.Get("other.com")
	if _, ok := err.(*core.HostNotFound); !ok {
		t.Errorf("err = %v, want *core.HostNotFound", err)
	}
}

func newFakeRouterTenant(t *testing.T) (*Tenant, error) {
	t.Helper()
	sr, err := newTestSwappableRouter()
	if err != nil {
		return nil, err
	}
	return &Tenant{Router: sr, Pool: NewSwappableWorkerPool(&fakePool{})}, nil
}

type fakePool struct{}

func (f *fakePool) Run(name string, req *core.Req) (*core.Res, error) {
	return &core.Res{Status: 200}, nil
}
func (f *fakePool) Dispose() {}
