// Package store locates learner profiles on disk. Each profile owns one
// SQLite database holding its favorites, review log and conversation cache.
package store

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
)

// DefaultProfile is the profile used when none is selected.
const DefaultProfile = "default"

// ProfileEnv names the environment variable that selects a profile.
const ProfileEnv = "TUTOR_PROFILE"

// ErrInvalidProfileID indicates the profile ID format is invalid.
var ErrInvalidProfileID = errors.New("invalid profile ID: must be 1-64 lowercase letters, digits or single hyphens")

// profileIDRegex accepts a single segment with no leading or trailing hyphen.
var profileIDRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?$`)

// ValidateProfileID checks a profile ID.
func ValidateProfileID(id string) error {
	if id == "" || len(id) > 64 {
		return ErrInvalidProfileID
	}
	for i := 1; i < len(id); i++ {
		if id[i] == '-' && id[i-1] == '-' {
			return ErrInvalidProfileID
		}
	}
	if !profileIDRegex.MatchString(id) {
		return ErrInvalidProfileID
	}
	return nil
}

// ResolveProfile picks the profile ID: explicit, then TUTOR_PROFILE, then
// DefaultProfile.
func ResolveProfile(explicit string) (string, error) {
	if explicit != "" {
		if err := ValidateProfileID(explicit); err != nil {
			return "", fmt.Errorf("invalid profile %q: %w", explicit, err)
		}
		return explicit, nil
	}
	if env := os.Getenv(ProfileEnv); env != "" {
		if err := ValidateProfileID(env); err != nil {
			return "", fmt.Errorf("invalid %s %q: %w", ProfileEnv, env, err)
		}
		return env, nil
	}
	return DefaultProfile, nil
}

// ListProfiles returns the profiles under root that have a database,
// sorted by ID. A missing root yields an empty list.
func ListProfiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profile root: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || ValidateProfileID(e.Name()) != nil {
			continue
		}
		if _, err := os.Stat(DBPathIn(root, e.Name())); err == nil {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}
