package secretstore

import (
	"fmt"
	"strings"
	"testing"
)

func TestSecretStringNeverExposesValue(t *testing.T) {
	s := NewSecret("sk-super-secret-value")
	if strings.Contains(s.String(), "sk-super-secret-value") {
		t.Fatal("String() leaked the secret value")
	}
	if strings.Contains(fmt.Sprintf("%v", s), "sk-super-secret-value") {
		t.Fatal("%v formatting leaked the secret value")
	}
	if strings.Contains(fmt.Sprintf("%+v", s), "sk-super-secret-value") {
		t.Fatal("%+v formatting leaked the secret value")
	}
}

func TestSecretExposeReturnsValue(t *testing.T) {
	s := NewSecret("my-key")
	if s.Expose() != "my-key" {
		t.Fatalf("Expose() = %q, want %q", s.Expose(), "my-key")
	}
}

func TestSecretIsEmpty(t *testing.T) {
	if !NewSecret("").IsEmpty() {
		t.Fatal("expected empty secret to report IsEmpty")
	}
	if NewSecret("x").IsEmpty() {
		t.Fatal("expected non-empty secret to report !IsEmpty")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	if _, ok, err := store.Get("alpha"); err != nil || ok {
		t.Fatalf("expected missing entry, got ok=%v err=%v", ok, err)
	}

	if err := store.Set("alpha", NewSecret("key-123")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := store.Get("alpha")
	if err != nil || !ok {
		t.Fatalf("expected to find entry, got ok=%v err=%v", ok, err)
	}
	if got.Expose() != "key-123" {
		t.Fatalf("Expose() = %q, want %q", got.Expose(), "key-123")
	}

	if err := store.Delete("alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := store.Get("alpha"); ok {
		t.Fatal("expected entry to be gone after delete")
	}
}

func TestMemoryStoreDeleteAbsentIsNotError(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Delete("never-existed"); err != nil {
		t.Fatalf("unexpected error deleting absent entry: %v", err)
	}
}

func TestAccountKeyFormat(t *testing.T) {
	if got := account("my-profile"); got != "api_key:my-profile" {
		t.Fatalf("account() = %q, want %q", got, "api_key:my-profile")
	}
}
