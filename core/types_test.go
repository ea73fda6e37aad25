package core

import (
	"errors"
	"math"
	"testing"
)

func TestAddSafe(t *testing.T) {
	if v, err := AddSafe(10, 5); err != nil || v != 15 {
		t.Fatalf("got %v %v", v, err)
	}
	if v, err := AddSafe(10, -25); err != nil || v != -15 {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := AddSafe(math.MaxInt64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := AddSafe(math.MinInt64, -1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestEntryApply(t *testing.T) {
	e, err := Entry{}.Apply(42, 10)
	if err != nil || e != (Entry{ActorID: 42, Points: 10, Wins: 1}) {
		t.Fatalf("first award: %+v %v", e, err)
	}
	// negative deltas still count as a win
	e, err = e.Apply(42, -3)
	if err != nil || e.Points != 7 || e.Wins != 2 {
		t.Fatalf("second award: %+v %v", e, err)
	}
	if _, err := (Entry{ActorID: 1, Points: math.MaxInt64}).Apply(1, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestParseActorID(t *testing.T) {
	for in, want := range map[string]ActorID{"42": 42, " 7 ": 7, "<@99>": 99, "<@!100>": 100} {
		got, err := ParseActorID(in)
		if err != nil || got != want {
			t.Fatalf("ParseActorID(%q) = %v, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "abc", "<@>"} {
		if _, err := ParseActorID(in); !errors.Is(err, ErrInvalidActor) {
			t.Fatalf("ParseActorID(%q) expected invalid, got %v", in, err)
		}
	}
}

func TestIsAuthorized(t *testing.T) {
	roles := NewRoleSet(1, 2, 3)
	if !IsAuthorized(roles, 2) {
		t.Fatal("expected role 2 to authorize")
	}
	if IsAuthorized(roles, 4) {
		t.Fatal("role 4 should not authorize")
	}
	if IsAuthorized(nil, 1) {
		t.Fatal("nil role set should not authorize")
	}
	if err := Authorize(roles, 9); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	inner := errors.New("disk gone")
	err := error(&StorageError{Op: "award", Err: inner})
	if !errors.Is(err, inner) || !IsStorageError(err) {
		t.Fatalf("unexpected: %v", err)
	}
	if IsStorageError(ErrNotFound) {
		t.Fatal("not found is not a storage error")
	}
}

func TestParseRoleID(t *testing.T) {
	if id, err := ParseRoleID("<@&1088359970527002624>"); err != nil || id != 1088359970527002624 {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := ParseRoleID("mods"); err == nil {
		t.Fatal("expected error for non-numeric role")
	}
}
