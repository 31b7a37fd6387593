package store

import (
	"os"
	"path/filepath"
)

// DBFile is the database file name inside a profile directory.
const DBFile = "tutor.db"

// DefaultRoot returns the directory holding all profiles:
// ~/.russian-talk-tutor/profiles, or ./.russian-talk-tutor/profiles when
// the home directory is unknown.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".russian-talk-tutor", "profiles")
	}
	return filepath.Join(home, ".russian-talk-tutor", "profiles")
}

// DBPathIn returns the database path of profile under root.
func DBPathIn(root, profile string) string {
	return filepath.Join(root, profile, DBFile)
}

// DBPath returns the database path of profile under DefaultRoot.
//
//	DBPath("default") -> ~/.russian-talk-tutor/profiles/default/tutor.db
func DBPath(profile string) string {
	return DBPathIn(DefaultRoot(), profile)
}
