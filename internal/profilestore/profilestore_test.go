package profilestore

import (
	"path/filepath"
	"testing"

	"github.com/hqescan/scanner/internal/secretstore"
)

func testProfile(name string) Profile {
	return Profile{
		Name:         name,
		BaseURL:      "https://api.example.com",
		DefaultModel: "gpt-4o-mini",
		TimeoutS:     30,
	}
}

func TestMemoryStoreUpsertGetDelete(t *testing.T) {
	store := NewMemoryStore()

	if err := store.UpsertProfile(testProfile("alpha")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := store.GetProfile("alpha")
	if err != nil || !ok {
		t.Fatalf("expected to find profile, ok=%v err=%v", ok, err)
	}
	if got.BaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base_url: %q", got.BaseURL)
	}

	deleted, err := store.DeleteProfile("alpha")
	if err != nil || !deleted {
		t.Fatalf("expected deletion, deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := store.GetProfile("alpha"); ok {
		t.Fatal("expected profile to be gone after delete")
	}
}

func TestUpsertReplacesSameName(t *testing.T) {
	store := NewMemoryStore()
	p := testProfile("alpha")
	if err := store.UpsertProfile(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.DefaultModel = "gpt-4o"
	if err := store.UpsertProfile(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profiles, err := store.LoadProfiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected exactly one profile after re-upsert, got %d", len(profiles))
	}
	if profiles[0].DefaultModel != "gpt-4o" {
		t.Fatalf("expected updated model, got %q", profiles[0].DefaultModel)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if store.ProfilesPath() != filepath.Join(dir, "profiles.json") {
		t.Fatalf("unexpected path: %q", store.ProfilesPath())
	}

	if err := store.UpsertProfile(testProfile("alpha")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := NewFileStore(dir)
	got, ok, err := reloaded.GetProfile("alpha")
	if err != nil || !ok {
		t.Fatalf("expected to reload profile from disk, ok=%v err=%v", ok, err)
	}
	if got.Name != "alpha" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestFileStoreLoadMissingFileReturnsEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir())
	profiles, err := store.LoadProfiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected no profiles, got %+v", profiles)
	}
}

func TestProfileValidateRejectsBadBaseURL(t *testing.T) {
	p := testProfile("alpha")
	p.BaseURL = "not-a-url"
	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for invalid base_url")
	}
}

func TestProfileValidateRejectsAuthorizationHeader(t *testing.T) {
	p := testProfile("alpha")
	p.Headers = map[string]string{"Authorization": "Bearer x"}
	// Authorization is silently dropped by SanitizeHeaders, not rejected as
	// an error — validate that it does NOT cause Validate to fail, matching
	// discovery.SanitizeHeaders' drop-don't-reject behavior.
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProfileValidateRejectsControlCharsInHeaders(t *testing.T) {
	p := testProfile("alpha")
	p.Headers = map[string]string{"X-Test": "bad\nvalue"}
	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for control characters in header value")
	}
}

func TestManagerSaveProfileValidatesBeforeUpsert(t *testing.T) {
	manager := NewManager(NewMemoryStore(), secretstore.NewMemoryStore())
	bad := testProfile("alpha")
	bad.BaseURL = "ftp://nope"
	if err := manager.SaveProfile(bad, nil); err == nil {
		t.Fatal("expected error for invalid base_url")
	}
	if profiles, _ := manager.LoadProfiles(); len(profiles) != 0 {
		t.Fatalf("expected no profile to be persisted, got %+v", profiles)
	}
}

func TestManagerSaveAndGetProfileWithKey(t *testing.T) {
	manager := NewManager(NewMemoryStore(), secretstore.NewMemoryStore())
	key := secretstore.NewSecret("sk-test-123")
	if err := manager.SaveProfile(testProfile("alpha"), &key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, gotKey, ok, err := manager.GetProfileWithKey("alpha")
	if err != nil || !ok {
		t.Fatalf("expected to find profile, ok=%v err=%v", ok, err)
	}
	if profile.Name != "alpha" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if gotKey.Expose() != "sk-test-123" {
		t.Fatalf("unexpected key: %q", gotKey.Expose())
	}
}

func TestManagerDeleteProfileAlsoDeletesKey(t *testing.T) {
	keyStore := secretstore.NewMemoryStore()
	manager := NewManager(NewMemoryStore(), keyStore)
	key := secretstore.NewSecret("sk-test-123")
	if err := manager.SaveProfile(testProfile("alpha"), &key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := manager.DeleteProfile("alpha")
	if err != nil || !deleted {
		t.Fatalf("expected deletion, deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := keyStore.Get("alpha"); ok {
		t.Fatal("expected key to be deleted along with profile")
	}
}

func TestManagerGetProfileWithKeyHandlesMissingKey(t *testing.T) {
	manager := NewManager(NewMemoryStore(), secretstore.NewMemoryStore())
	if err := manager.SaveProfile(testProfile("alpha"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profile, key, ok, err := manager.GetProfileWithKey("alpha")
	if err != nil || !ok {
		t.Fatalf("expected to find profile, ok=%v err=%v", ok, err)
	}
	if profile.Name != "alpha" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if !key.IsEmpty() {
		t.Fatal("expected empty key when none was stored")
	}
}
