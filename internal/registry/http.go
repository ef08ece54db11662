package registry

import (
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dinoserve/dino/internal/core"
)

// Dispatcher adapts the registry to net/http, implementing spec.md
// §4.7's five-step request path as a single http.Handler.
type Dispatcher struct {
	Registry *Registry
}

// NewDispatcher returns a Dispatcher backed by reg.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{Registry: reg}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Every request gets its own correlation id so the handful of INFO
	// lines this request produces can be grepped back together even
	// when workers interleave them across goroutines.
	log := logrus.WithField("request_id", uuid.NewString())

	tenant, err := d.Registry.Get(r.Host)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Infof("host: %s", StripPort(r.Host))

	ar := tenant.Router.Load()
	handlerName, params, err := ar.Match(r.Method, r.URL.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := buildReq(r, params)
	if err != nil {
		writeError(w, err)
		return
	}

	pool := tenant.Pool.Load()
	res, err := pool.Run(handlerName, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeRes(w, res)
}

// buildReq assembles a core.Req the way spec.md §4.7 step 4 describes:
// one header value per name (last wins, matching net/http.Header's own
// collapsing of repeated headers into a slice we only read the last
// of), the raw query string decoded into a flat map, and the body
// dropped (not errored) if it isn't valid UTF-8.
func buildReq(r *http.Request, params []core.Param) (*core.Req, error) {
	headers := map[string]string{}
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[len(values)-1]
		}
	}

	query := map[string]string{}
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[len(values)-1]
		}
	}

	var body *string
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && utf8.Valid(raw) {
		s := string(raw)
		body = &s
	}

	return &core.Req{
		Method:  r.Method,
		URL:     r.URL.String(),
		Params:  params,
		Query:   query,
		Headers: headers,
		Body:    body,
	}, nil
}

func writeRes(w http.ResponseWriter, res *core.Res) {
	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	status := int(res.Status)
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if res.Body != nil {
		io.WriteString(w, *res.Body)
	}
}

// writeError translates a core error kind into the HTTP status
// spec.md §7 assigns it, with the error's message as a plain-text
// body so HandlerThrew's script message reaches the caller.
func writeError(w http.ResponseWriter, err error) {
	status := core.StatusCode(err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)
	io.WriteString(w, err.Error())
}
