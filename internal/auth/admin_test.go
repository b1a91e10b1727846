package auth

import (
	"errors"
	"testing"
)

func TestAdmin_ProductionHeaderOnly(t *testing.T) {
	a := NewAdmin("s3cret", false)

	if err := a.Authorize("s3cret", ""); err != nil {
		t.Fatalf("correct header rejected: %v", err)
	}
	if err := a.Authorize("wrong", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong header: got %v", err)
	}
	if err := a.Authorize("", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("missing header: got %v", err)
	}
	// Cookie must never work outside dev mode.
	if err := a.Authorize("", "1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("cookie accepted in production: got %v", err)
	}
}

func TestAdmin_FailsClosedWhenUnconfigured(t *testing.T) {
	a := NewAdmin("", false)
	if err := a.Authorize("anything", ""); !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("unconfigured secret must fail closed: got %v", err)
	}
	// The dev cookie grants nothing when no secret exists server-side.
	dev := NewAdmin("", true)
	if err := dev.Authorize("", "1"); !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("unconfigured dev mode must fail closed: got %v", err)
	}
}

func TestAdmin_DevCookie(t *testing.T) {
	a := NewAdmin("s3cret", true)
	if err := a.Authorize("", "1"); err != nil {
		t.Fatalf("dev cookie rejected: %v", err)
	}
	if err := a.Authorize("", "0"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-flag cookie accepted: got %v", err)
	}
	if err := a.Authorize("s3cret", ""); err != nil {
		t.Fatalf("header must still work in dev: %v", err)
	}
}

func TestSeedToken(t *testing.T) {
	st := NewSeedToken("tok")
	if err := st.Authorize("tok"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := st.Authorize("nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("invalid token: got %v", err)
	}
	if err := NewSeedToken("").Authorize("tok"); !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("unset token must fail closed: got %v", err)
	}
}
