package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/webstde/internal/logging"
	"github.com/ha1tch/webstde/pkg/stde"
)

const sampleDoc = `{
  "id": "blink",
  "signals": [{"id":"led","type":"bit","bits":1,"io":"output","desc":""}],
  "states": [
    {"id":"off","x":100,"y":100,"code":"","desc":"","q":{"led":"0"}},
    {"id":"on","x":500,"y":100,"code":"","desc":"","q":{"led":"1"}}
  ],
  "transitions": [
    {"u":0,"v":1,"u.angle":0,"v.angle":3.14159,"cond":"tick"},
    {"u":1,"v":0,"u.angle":3.14159,"v.angle":0,"cond":"tick"}
  ]
}`

func newTestServer() *Server {
	return New(logging.NewNop(), DefaultOptions())
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestServer(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestValidate(t *testing.T) {
	rr := do(t, newTestServer(), http.MethodPost, "/v1/validate", sampleDoc)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, ValidateResponse{Valid: true, ID: "blink", Signals: 1, States: 2, Transitions: 2, Warnings: []stde.Warning{}}, resp)
}

func TestValidateReportsWarnings(t *testing.T) {
	doc := `{"id":"","signals":[],"states":[{"id":"a","x":0,"y":0,"code":"","desc":"","q":{"ghost":"1"}}],"transitions":[]}`
	rr := do(t, newTestServer(), http.MethodPost, "/v1/validate", doc)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "undeclared_output", resp.Warnings[0].Type)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"states": [`, http.StatusBadRequest},
		{"unknown field", `{"nodes": []}`, http.StatusBadRequest},
		{"bad signal", `{"signals":[{"id":"x","type":"bit_n","bits":0,"io":"input","desc":""}]}`, http.StatusUnprocessableEntity},
		{"dangling index", `{"states":[],"transitions":[{"u":0,"v":0,"u.angle":0,"v.angle":0,"cond":""}]}`, http.StatusUnprocessableEntity},
	}
	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/v1/validate", tt.body)
			assert.Equal(t, tt.want, rr.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestBodyTooLarge(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBodyBytes = 16
	s := New(logging.NewNop(), opts)
	rr := do(t, s, http.MethodPost, "/v1/validate", sampleDoc)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestDOT(t *testing.T) {
	rr := do(t, newTestServer(), http.MethodPost, "/v1/dot?title=Blink", sampleDoc)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "graphviz")
	body := rr.Body.String()
	assert.Contains(t, body, `label="Blink";`)
	assert.Contains(t, body, `s0 -> s1 [label="tick"];`)
}

func TestRenderSVG(t *testing.T) {
	rr := do(t, newTestServer(), http.MethodPost, "/v1/render/svg?width=640&height=480&outputs=false", sampleDoc)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, `width="640" height="480"`)
	assert.Equal(t, 2, strings.Count(body, "<ellipse"))
	assert.NotContains(t, body, "led=")
}

func TestRenderPNG(t *testing.T) {
	rr := do(t, newTestServer(), http.MethodPost, "/v1/render/png?width=300&height=200", sampleDoc)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestRenderBadParams(t *testing.T) {
	s := newTestServer()
	for _, q := range []string{"width=wide", "colour=red", "height=100000", "outputs=maybe"} {
		rr := do(t, s, http.MethodPost, "/v1/render/svg?"+q, sampleDoc)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer()
	do(t, s, http.MethodPost, "/v1/validate", sampleDoc)
	do(t, s, http.MethodPost, "/v1/validate", `{"states": [`)

	rr := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `stde_http_requests_total{code="200",route="/v1/validate"} 1`)
	assert.Contains(t, body, `stde_http_requests_total{code="400",route="/v1/validate"} 1`)
	assert.Contains(t, body, `stde_documents_rejected_total{reason="malformed"} 1`)
	assert.Contains(t, body, "stde_http_request_duration_seconds_bucket")
}

func TestMethodNotAllowed(t *testing.T) {
	rr := do(t, newTestServer(), http.MethodGet, "/v1/validate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestLayout(t *testing.T) {
	s := newTestServer()

	rr := do(t, s, http.MethodPost, "/v1/layout?algorithm=grid", sampleDoc)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var doc stde.Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	require.Len(t, doc.States, 2)
	assert.Equal(t, 150.0, doc.States[0].X)
	assert.Equal(t, 450.0, doc.States[1].X)
	assert.Equal(t, doc.States[0].Y, doc.States[1].Y)
	assert.Len(t, doc.Transitions, 2)

	rr = do(t, s, http.MethodPost, "/v1/layout?hgap=0", sampleDoc)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, 95.0, doc.States[0].Y)
	assert.Equal(t, 295.0, doc.States[1].Y)
	assert.Equal(t, doc.States[0].X, doc.States[1].X)
}

func TestLayoutBadParams(t *testing.T) {
	s := newTestServer()
	for _, target := range []string{
		"/v1/layout?algorithm=spiral",
		"/v1/layout?hgap=-5",
		"/v1/layout?vgap=wide",
		"/v1/layout?scale=2",
	} {
		rr := do(t, s, http.MethodPost, target, sampleDoc)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}
