//go:build v8

package v8engine

import (
	"strings"
	"testing"

	"github.com/dinoserve/dino/internal/core"
)

func TestWrapHandlersModule_ExportDefault(t *testing.T) {
	source := `export default { hello(req) { return { status: 200, headers: {}, body: "ok" }; } };`
	result, err := wrapHandlersModule(source)
	if err != nil {
		t.Fatalf("wrapHandlersModule: %v", err)
	}
	if !strings.Contains(result, "globalThis.handlers") {
		t.Errorf("result should set globalThis.handlers, got %q", result)
	}
	if strings.Contains(result, "export default") {
		t.Errorf("result should not contain 'export default', got %q", result)
	}
}

func TestWrapHandlersModule_NamedExports(t *testing.T) {
	source := `function hello(req) { return { status: 200, headers: {}, body: "ok" }; }
export { hello };`
	result, err := wrapHandlersModule(source)
	if err != nil {
		t.Fatalf("wrapHandlersModule: %v", err)
	}
	if !strings.Contains(result, "globalThis.handlers") {
		t.Errorf("should set globalThis.handlers, got %q", result)
	}
	if !strings.Contains(result, "hello") {
		t.Errorf("should include the export, got %q", result)
	}
}

func TestWrapHandlersModule_SyntaxError(t *testing.T) {
	_, err := wrapHandlersModule(`this is not valid javascript {{{`)
	if err == nil {
		t.Fatal("expected an error for invalid source")
	}
}

// echoHandlerSource is the literal echo handler from the end-to-end
// scenario: an async handler that JSON-encodes the request it received.
const echoHandlerSource = `
(function(){
	async function hello(req){
		return { status: 200, headers: { "content-type": "application/json" }, body: JSON.stringify(req) };
	}
	return { hello: hello };
})();
`

func TestWorker_EchoHandler(t *testing.T) {
	w, err := newWorker("export default " + echoHandlerSource)
	if err != nil {
		t.Fatalf("newWorker: %v", err)
	}
	defer w.close()

	req := &core.Req{
		Method:  "GET",
		URL:     "https://example.com",
		Headers: map[string]string{},
		Query:   map[string]string{},
	}

	res, err := w.run("hello", req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != 200 {
		t.Errorf("status = %d, want 200", res.Status)
	}
	if res.Body == nil || !strings.Contains(*res.Body, `"method":"GET"`) {
		t.Errorf("body = %v, want echoed request containing method GET", res.Body)
	}
}

func TestWorker_HandlerNotFound(t *testing.T) {
	w, err := newWorker("export default " + echoHandlerSource)
	if err != nil {
		t.Fatalf("newWorker: %v", err)
	}
	defer w.close()

	_, err = w.run("missing", &core.Req{Method: "GET", URL: "https://example.com"})
	if _, ok := err.(*core.HandlerNotFound); !ok {
		t.Errorf("err = %T, want *core.HandlerNotFound", err)
	}
}

func TestWorker_HandlerThrows(t *testing.T) {
	source := `export default { boom(req) { throw new Error("kaboom"); } };`
	w, err := newWorker(source)
	if err != nil {
		t.Fatalf("newWorker: %v", err)
	}
	defer w.close()

	_, err = w.run("boom", &core.Req{Method: "GET", URL: "https://example.com"})
	if err == nil {
		t.Fatal("expected an error from the throwing handler")
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("error = %v, want it to mention 'kaboom'", err)
	}
}

func TestWorker_BadResponseShape(t *testing.T) {
	source := `export default { weird(req) { return 42; } };`
	w, err := newWorker(source)
	if err != nil {
		t.Fatalf("newWorker: %v", err)
	}
	defer w.close()

	_, err = w.run("weird", &core.Req{Method: "GET", URL: "https://example.com"})
	if _, ok := err.(*core.BadResponseShape); !ok {
		t.Errorf("err = %T, want *core.BadResponseShape", err)
	}
}

func TestWorker_RequestParamsAndBody(t *testing.T) {
	source := `export default {
		echo(req) {
			return {
				status: 200,
				headers: {},
				body: JSON.stringify({ params: req.params, body: req.body, query: req.query }),
			};
		},
	};`
	w, err := newWorker(source)
	if err != nil {
		t.Fatalf("newWorker: %v", err)
	}
	defer w.close()

	body := "hello world"
	req := &core.Req{
		Method:  "POST",
		URL:     "https://example.com/users/42",
		Params:  []core.Param{{Key: "id", Value: "42"}},
		Query:   map[string]string{"verbose": "true"},
		Headers: map[string]string{},
		Body:    &body,
	}

	res, err := w.run("echo", req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Body == nil {
		t.Fatal("expected a response body")
	}
	if !strings.Contains(*res.Body, `"id":"42"`) {
		t.Errorf("body = %s, want params.id = 42", *res.Body)
	}
	if !strings.Contains(*res.Body, "hello world") {
		t.Errorf("body = %s, want echoed request body", *res.Body)
	}
}
