// Package helpers provides common test utilities for end-to-end testing.
//
// This package includes token minting, HTTP request builders and response
// assertion helpers for testing API endpoints.
package helpers

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/forgo/muster/internal/model"
	"github.com/forgo/muster/pkg/jwt"
)

// TestIssuer is the issuer of every token minted by JWTHelper
const TestIssuer = "muster-test"

// ============================================================================
// JWT Helpers
// ============================================================================

// JWTHelper mints tokens for test members with an in-memory key
type JWTHelper struct {
	t   *testing.T
	svc *jwt.Service
}

// NewJWTHelper creates a new JWT helper with an in-memory key
func NewJWTHelper(t *testing.T) *JWTHelper {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("helpers: failed to generate RSA key: %v", err)
	}

	return &JWTHelper{t: t, svc: jwt.NewTestService(privateKey, TestIssuer, time.Hour)}
}

// Service returns the JWT service that validates the helper's tokens
func (h *JWTHelper) Service() *jwt.Service {
	return h.svc
}

// GenerateToken creates a valid token carrying the member's identity
func (h *JWTHelper) GenerateToken(m model.Member) string {
	return h.sign(claimsFor(m))
}

// GenerateExpiredToken creates a token that expired an hour ago
func (h *JWTHelper) GenerateExpiredToken(m model.Member) string {
	claims := claimsFor(m)
	claims.ExpiresAt = gojwt.NewNumericDate(time.Now().Add(-time.Hour))
	return h.sign(claims)
}

func (h *JWTHelper) sign(claims jwt.Claims) string {
	h.t.Helper()
	token, err := h.svc.Sign(claims)
	if err != nil {
		h.t.Fatalf("helpers: failed to sign token: %v", err)
	}
	return token
}

func claimsFor(m model.Member) jwt.Claims {
	return jwt.Claims{UserID: m.UserID, DisplayName: m.DisplayName, Email: m.Email}
}

// ============================================================================
// HTTP Request Helpers
// ============================================================================

// RequestBuilder helps construct HTTP requests for testing
type RequestBuilder struct {
	t       *testing.T
	method  string
	path    string
	body    any
	headers map[string]string
	token   string
}

// NewRequest creates a new request builder
func NewRequest(t *testing.T, method, path string) *RequestBuilder {
	t.Helper()
	return &RequestBuilder{
		t:       t,
		method:  method,
		path:    path,
		headers: make(map[string]string),
	}
}

// WithBody sets the request body (will be JSON encoded)
func (rb *RequestBuilder) WithBody(body any) *RequestBuilder {
	rb.body = body
	return rb
}

// WithHeader adds a header to the request
func (rb *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	rb.headers[key] = value
	return rb
}

// WithAuth authenticates the request as m
func (rb *RequestBuilder) WithAuth(h *JWTHelper, m model.Member) *RequestBuilder {
	rb.token = h.GenerateToken(m)
	return rb
}

// WithToken sets a raw bearer token
func (rb *RequestBuilder) WithToken(token string) *RequestBuilder {
	rb.token = token
	return rb
}

// Build creates the HTTP request
func (rb *RequestBuilder) Build() *http.Request {
	rb.t.Helper()

	var bodyReader io.Reader
	if rb.body != nil {
		bodyBytes, err := json.Marshal(rb.body)
		if err != nil {
			rb.t.Fatalf("helpers: failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(rb.method, rb.path, bodyReader)

	// Set content type for requests with body
	if rb.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range rb.headers {
		req.Header.Set(k, v)
	}

	if rb.token != "" {
		req.Header.Set("Authorization", "Bearer "+rb.token)
	}

	return req
}

// Do builds the request and serves it with h
func (rb *RequestBuilder) Do(h http.Handler) *httptest.ResponseRecorder {
	rb.t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, rb.Build())
	return rr
}

// ============================================================================
// Response Assertion Helpers
// ============================================================================

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, resp *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if resp.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, resp.Code, resp.Body.String())
	}
}

// AssertProblemDetails validates an RFC 9457 Problem Details error response
// and returns it
func AssertProblemDetails(t *testing.T, resp *httptest.ResponseRecorder, expectedStatus int, expectedCode model.ErrorCode) model.ProblemDetails {
	t.Helper()

	AssertStatus(t, resp, expectedStatus)

	var problem model.ProblemDetails
	bodyBytes := resp.Body.Bytes()
	if err := json.Unmarshal(bodyBytes, &problem); err != nil {
		t.Fatalf("failed to decode problem details: %v. Body: %s", err, string(bodyBytes))
	}

	if problem.Status != expectedStatus {
		t.Errorf("expected problem.status %d, got %d", expectedStatus, problem.Status)
	}

	if expectedCode != 0 && problem.Code != expectedCode {
		t.Errorf("expected problem.code %d, got %d", expectedCode, problem.Code)
	}
	return problem
}

// AssertValidationError checks for a validation error on a specific field
func AssertValidationError(t *testing.T, resp *httptest.ResponseRecorder, field string) {
	t.Helper()

	problem := AssertProblemDetails(t, resp, http.StatusUnprocessableEntity, 0)
	for _, fe := range problem.Errors {
		if fe.Field == field {
			return
		}
	}

	t.Errorf("expected validation error on field %q, but not found. Errors: %+v", field, problem.Errors)
}

// DecodeData decodes the "data" field of a standard response into v
func DecodeData(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()

	response := struct {
		Data any `json:"data"`
	}{Data: v}
	bodyBytes := resp.Body.Bytes()
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		t.Fatalf("failed to decode response: %v. Body: %s", err, string(bodyBytes))
	}
}
