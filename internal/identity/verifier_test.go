package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jwt "github.com/golang-jwt/jwt/v5"
)

func TestNewVerifierRequiresJWKSURL(t *testing.T) {
	if _, err := NewVerifier(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing jwks url to fail")
	}
}

func TestVerifyResolvesCallerAndRefreshesOnUnknownKid(t *testing.T) {
	key1 := mustRSAKey(t)
	key2 := mustRSAKey(t)

	var active atomic.Value
	active.Store("kid-1")
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		kid := active.Load().(string)
		key := key1.PublicKey
		if kid == "kid-2" {
			key = key2.PublicKey
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{toJWK(kid, key)}})
	}))
	defer jwksServer.Close()

	v, err := NewVerifier(context.Background(), Config{JWKSURL: jwksServer.URL, Issuer: "issuer-a", Audience: "aud-a"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	caller, err := v.Verify(context.Background(), signToken(t, key1, "kid-1", "issuer-a", "aud-a", "parent-1", time.Now()))
	if err != nil || caller.ID != "parent-1" {
		t.Fatalf("verify token1: caller=%+v err=%v", caller, err)
	}

	// Rotation: unknown kid forces a JWKS refresh before failing.
	active.Store("kid-2")
	caller, err = v.Verify(context.Background(), signToken(t, key2, "kid-2", "issuer-a", "aud-a", "teacher-1", time.Now()))
	if err != nil || caller.ID != "teacher-1" {
		t.Fatalf("verify token2: caller=%+v err=%v", caller, err)
	}
}

func TestVerifyRejectsForeignSignatureAndWrongAudience(t *testing.T) {
	key := mustRSAKey(t)
	v := newTestVerifier(t, key, nil)

	if _, err := v.Verify(context.Background(), signToken(t, mustRSAKey(t), "kid-1", "tutor-identity", "tutor-api", "u1", time.Now())); err == nil {
		t.Fatalf("expected foreign signature to fail")
	}
	if _, err := v.Verify(context.Background(), signToken(t, key, "kid-1", "tutor-identity", "other-api", "u1", time.Now())); err == nil {
		t.Fatalf("expected wrong audience to fail")
	}
	if _, err := v.Verify(context.Background(), signToken(t, key, "kid-1", "tutor-identity", "tutor-api", "u1", time.Now().Add(2*time.Minute))); err == nil {
		t.Fatalf("expected future iat to fail")
	}
}

func TestVerifyRejectsRevokedToken(t *testing.T) {
	redis := miniredis.RunT(t)
	revoker := NewRedisRevoker(redis.Addr(), "", "test:revoked")
	key := mustRSAKey(t)
	v := newTestVerifier(t, key, revoker)

	token := signToken(t, key, "kid-1", "tutor-identity", "tutor-api", "u1", time.Now())
	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("verify before revocation: %v", err)
	}
	if err := redis.Set(revoker.Key(token), "1"); err != nil {
		t.Fatalf("seed revocation: %v", err)
	}
	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no caller on empty context")
	}
	if _, ok := FromContext(WithCaller(context.Background(), Caller{ID: " "})); ok {
		t.Fatalf("expected blank caller id to be treated as unauthenticated")
	}
	c, ok := FromContext(WithCaller(context.Background(), Caller{ID: "userA"}))
	if !ok || c.ID != "userA" {
		t.Fatalf("caller = %+v ok=%v", c, ok)
	}
}

func newTestVerifier(t *testing.T, key *rsa.PrivateKey, revoker Revoker) *Verifier {
	t.Helper()
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{toJWK("kid-1", key.PublicKey)}})
	}))
	t.Cleanup(jwksServer.Close)
	v, err := NewVerifier(context.Background(), Config{JWKSURL: jwksServer.URL, Leeway: 5 * time.Second, Revoker: revoker})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid, issuer, audience, subject string, issuedAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Second)),
	})
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func mustRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func toJWK(kid string, key rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}
