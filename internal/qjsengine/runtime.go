//go:build !v8

package qjsengine

import (
	"fmt"

	"modernc.org/quickjs"

	"github.com/dinoserve/dino/internal/core"
)

// qjsRuntime adapts a *quickjs.VM to core.JSRuntime. It is deliberately
// thin: this spec has no streaming/binary-transfer surface, so it skips
// the ArrayBuffer plumbing a Workers-style engine would need.
type qjsRuntime struct {
	vm *quickjs.VM
}

var _ core.JSRuntime = (*qjsRuntime)(nil)

func (r *qjsRuntime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

func (r *qjsRuntime) EvalString(js string) (string, error) {
	v, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return fmt.Sprint(v), nil
}

func (r *qjsRuntime) EvalBool(js string) (bool, error) {
	v, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func (r *qjsRuntime) EvalInt(js string) (int, error) {
	v, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func (r *qjsRuntime) RunMicrotasks() {
	executePendingJobs(r.vm)
}
