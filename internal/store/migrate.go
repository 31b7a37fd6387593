package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LegacyDBPath is where single-profile installs kept their database:
// ~/.russian-talk-tutor/tutor.db.
func LegacyDBPath() string {
	return filepath.Join(filepath.Dir(DefaultRoot()), DBFile)
}

// MigrationResult reports what AdoptLegacyDatabase did.
type MigrationResult struct {
	Migrated   bool
	SourcePath string
	DestPath   string
}

// AdoptLegacyDatabase copies an existing single-profile database into the
// default profile under root. It does nothing when the default profile
// already has a database or no legacy database exists. legacyPath may be
// empty to use LegacyDBPath.
func AdoptLegacyDatabase(legacyPath, root string) (MigrationResult, error) {
	dest := DBPathIn(root, DefaultProfile)
	if _, err := os.Stat(dest); err == nil {
		return MigrationResult{}, nil
	}

	if legacyPath == "" {
		legacyPath = LegacyDBPath()
	}
	info, err := os.Stat(legacyPath)
	if err != nil || info.IsDir() {
		return MigrationResult{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return MigrationResult{}, fmt.Errorf("create default profile directory: %w", err)
	}
	if err := copyFile(legacyPath, dest); err != nil {
		return MigrationResult{}, fmt.Errorf("copy legacy database: %w", err)
	}
	return MigrationResult{Migrated: true, SourcePath: legacyPath, DestPath: dest}, nil
}

// copyFile copies src to dst and syncs it. A partial dst is removed on failure.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
