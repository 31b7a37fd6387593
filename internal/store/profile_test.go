package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/asofia888/russian-talk-tutor/internal/store"
)

func TestValidateProfileID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "anna", false},
		{"with hyphen", "anna-b2", false},
		{"digits", "2024", false},
		{"single char", "a", false},
		{"default", "default", false},

		{"empty", "", true},
		{"uppercase", "Anna", true},
		{"leading hyphen", "-anna", true},
		{"trailing hyphen", "anna-", true},
		{"double hyphen", "an--na", true},
		{"slash", "org/anna", true},
		{"cyrillic", "анна", true},
		{"underscore", "anna_b", true},
		{"too long", "abcdefghijklmnopqrstuvwxyz0123456789abcdefghijklmnopqrstuvwxyz012", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ValidateProfileID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateProfileID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, store.ErrInvalidProfileID) {
				t.Errorf("error = %v, want ErrInvalidProfileID", err)
			}
		})
	}
}

func TestResolveProfile(t *testing.T) {
	t.Setenv(store.ProfileEnv, "")
	got, err := store.ResolveProfile("")
	if err != nil || got != store.DefaultProfile {
		t.Fatalf("ResolveProfile(\"\") = %q, %v; want default", got, err)
	}

	t.Setenv(store.ProfileEnv, "from-env")
	got, err = store.ResolveProfile("")
	if err != nil || got != "from-env" {
		t.Fatalf("env: got %q, %v", got, err)
	}

	got, err = store.ResolveProfile("explicit")
	if err != nil || got != "explicit" {
		t.Fatalf("explicit: got %q, %v", got, err)
	}

	if _, err := store.ResolveProfile("Bad Name"); err == nil {
		t.Error("expected error for invalid explicit profile")
	}

	t.Setenv(store.ProfileEnv, "BAD")
	if _, err := store.ResolveProfile(""); err == nil {
		t.Error("expected error for invalid env profile")
	}
}

func TestDBPath(t *testing.T) {
	root := t.TempDir()
	got := store.DBPathIn(root, "anna")
	want := filepath.Join(root, "anna", "tutor.db")
	if got != want {
		t.Errorf("DBPathIn = %q, want %q", got, want)
	}
	if filepath.Base(store.DBPath("anna")) != store.DBFile {
		t.Errorf("DBPath should end in %s", store.DBFile)
	}
}

func TestListProfiles(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"zed", "anna", "Not-Valid"} {
		path := store.DBPathIn(root, id)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	ids, err := store.ListProfiles(root)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(ids) != 2 || ids[0] != "anna" || ids[1] != "zed" {
		t.Errorf("ListProfiles = %v, want [anna zed]", ids)
	}

	ids, err = store.ListProfiles(filepath.Join(root, "missing"))
	if err != nil || len(ids) != 0 {
		t.Errorf("missing root: got %v, %v", ids, err)
	}
}
