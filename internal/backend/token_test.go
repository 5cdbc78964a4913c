package backend

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenMaker_RoundTripAndExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tm := NewTokenMaker("secret", time.Hour)
	tm.now = func() time.Time { return now }

	want := Identity{UserID: "u_1", Email: "a@b.c", CartNo: "cart_1"}
	raw, err := tm.New(want)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := tm.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("identity=%+v want=%+v", got, want)
	}

	now = now.Add(time.Hour + time.Second)
	if _, err := tm.Parse(raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err=%v want ErrTokenExpired", err)
	}
}

func TestTokenMaker_RejectsForeignTokens(t *testing.T) {
	tm := NewTokenMaker("secret", time.Hour)

	other, err := NewTokenMaker("other-secret", time.Hour).New(Identity{UserID: "u_1"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := tm.Parse(other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: err=%v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u_1",
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tm.Parse(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg none: err=%v", err)
	}

	if _, err := tm.Parse("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: err=%v", err)
	}
}
