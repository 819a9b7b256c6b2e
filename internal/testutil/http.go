package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/fieldhub/internal/app/system/auth"
)

// Viewer, Editor and Admin return identities with the matching role.
func Viewer(uid string) auth.Identity { return auth.Identity{UID: uid, Role: auth.RoleViewer} }
func Editor(uid string) auth.Identity { return auth.Identity{UID: uid, Role: auth.RoleEditor} }
func Admin(uid string) auth.Identity  { return auth.Identity{UID: uid, Role: auth.RoleAdmin} }

// WithIdentity places id in the request context, bypassing token checks.
func WithIdentity(r *http.Request, id auth.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, target, body)
}

// NewJSONRequest encodes v as the request body.
func NewJSONRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body io.Reader
	switch b := v.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates a JSON request carrying id.
func NewAuthenticatedRequest(t *testing.T, method, target string, id auth.Identity, v any) *http.Request {
	t.Helper()
	return WithIdentity(NewJSONRequest(t, method, target, v), id)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// Decode unmarshals the JSON body into v.
func (r *ResponseRecorder) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}
