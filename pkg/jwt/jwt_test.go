package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestService(t *testing.T) *Service {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return NewTestService(privateKey, "test-issuer", 15*time.Minute)
}

// ============================================================================
// Sign / Validate Tests
// ============================================================================

func TestSignValidate_RoundTrip(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	token, err := svc.Sign(Claims{UserID: "u-123", DisplayName: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected three token segments, got %q", token)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "u-123" || claims.DisplayName != "Ana" || claims.Email != "ana@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("expected issuer test-issuer, got %q", claims.Issuer)
	}
	if claims.Subject != "u-123" {
		t.Errorf("expected subject to default to user id, got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Error("expected jti to be set")
	}
}

func TestValidate_SubjectOnlyToken_FillsUserID(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	token, err := svc.Sign(Claims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "u-9"}})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "u-9" {
		t.Errorf("expected user id from subject, got %q", claims.UserID)
	}
}

func TestValidate_NoIdentity_ReturnsErrInvalidToken(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	token, err := svc.Sign(Claims{})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := svc.Validate(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidate_Expired_ReturnsErrTokenExpired(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	token, err := svc.Sign(Claims{
		UserID:           "u-1",
		RegisteredClaims: gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour))},
	})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := svc.Validate(token); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidate_NotYetValid(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	future := time.Now().Add(time.Hour)
	svc.now = func() time.Time { return future }

	token, err := svc.Sign(Claims{UserID: "u-1"})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.Validate(token); err != ErrTokenNotYetValid {
		t.Errorf("expected ErrTokenNotYetValid, got %v", err)
	}
}

func TestValidate_WrongKey_ReturnsErrInvalidSignature(t *testing.T) {
	t.Parallel()
	signer := newTestService(t)
	verifier := newTestService(t)

	token, err := signer.Sign(Claims{UserID: "u-1"})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := verifier.Validate(token); err != ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidate_WrongIssuer_ReturnsErrInvalidToken(t *testing.T) {
	t.Parallel()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	signer := NewTestService(privateKey, "someone-else", time.Minute)
	verifier := NewTestService(privateKey, "test-issuer", time.Minute)

	token, err := signer.Sign(Claims{UserID: "u-1"})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := verifier.Validate(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidate_Garbage_ReturnsErrInvalidToken(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	for _, token := range []string{"", "abc", "a.b.c", "a.b"} {
		if _, err := svc.Validate(token); err != ErrInvalidToken {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestValidate_HS256Rejected(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		UserID:           "u-1",
		RegisteredClaims: gojwt.RegisteredClaims{Issuer: "test-issuer"},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := svc.Validate(token); err == nil {
		t.Error("expected HS256 token to be rejected")
	}
}

func TestSign_NoPrivateKey_ReturnsErrInvalidKey(t *testing.T) {
	t.Parallel()
	svc := &Service{}

	if _, err := svc.Sign(Claims{UserID: "u-1"}); err != ErrInvalidKey {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := svc.Validate("a.b.c"); err != ErrInvalidKey {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

// ============================================================================
// Key File Tests
// ============================================================================

func TestGenerateKeyPair_LoadsBack(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	if err := GenerateKeyPair(privPath, pubPath); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	signer, err := NewService(Config{PrivateKeyPath: privPath, Issuer: "muster", Expiration: time.Minute})
	if err != nil {
		t.Fatalf("loading private key failed: %v", err)
	}
	verifier, err := NewService(Config{PublicKeyPath: pubPath, Issuer: "muster"})
	if err != nil {
		t.Fatalf("loading public key failed: %v", err)
	}

	token, err := signer.Sign(Claims{UserID: "u-1"})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := verifier.Validate(token); err != nil {
		t.Errorf("validate failed: %v", err)
	}

	info, err := os.Stat(privPath)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected private key mode 0600, got %v", info.Mode().Perm())
	}
}

func TestNewService_MissingKeyFile(t *testing.T) {
	t.Parallel()

	if _, err := NewService(Config{PublicKeyPath: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Error("expected error for missing key file")
	}
}
