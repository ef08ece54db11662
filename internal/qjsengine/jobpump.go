//go:build !v8

package qjsengine

import (
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// executePendingJobs drains the QuickJS job queue (Promise reaction
// callbacks, async/await continuations). modernc.org/quickjs never calls
// JS_ExecutePendingJob on its own, so without this a .then() callback
// would sit in the queue forever. Reaches past the exported VM surface
// with reflection to call XJS_ExecutePendingJob directly.
//
// Returns the number of jobs run.
func executePendingJobs(vm *quickjs.VM) int {
	rt, tls, ok := extractRuntime(vm)
	if !ok {
		return 0
	}
	n := 0
	for {
		if lib.XJS_ExecutePendingJob(tls, rt, 0) <= 0 {
			break
		}
		n++
	}
	return n
}

// extractRuntime pulls the unexported cRuntime/tls pair out of a
// *quickjs.VM via reflection. Tied to the field layout of
// modernc.org/quickjs@v0.17.1's VM.runtime and runtime structs:
//
//	type VM struct { ... runtime *runtime; ... }
//	type runtime struct { cRuntime uintptr; tls *libc.TLS }
func extractRuntime(vm *quickjs.VM) (cRuntime uintptr, tls *libc.TLS, ok bool) {
	vmVal := reflect.ValueOf(vm).Elem()
	rtField := vmVal.FieldByName("runtime")
	if !rtField.IsValid() || rtField.IsNil() {
		return 0, nil, false
	}
	rtPtr := unsafe.Pointer(rtField.Pointer())
	rtVal := reflect.NewAt(rtField.Type().Elem(), rtPtr).Elem()

	cRuntimeField := rtVal.FieldByName("cRuntime")
	if !cRuntimeField.IsValid() {
		return 0, nil, false
	}
	cRuntime = uintptr(cRuntimeField.Uint())

	tlsField := rtVal.FieldByName("tls")
	if !tlsField.IsValid() || tlsField.IsNil() {
		return 0, nil, false
	}
	tls = (*libc.TLS)(unsafe.Pointer(tlsField.Pointer()))
	return cRuntime, tls, true
}
