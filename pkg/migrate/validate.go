package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	// destructive statements are rejected in Up sections
	destructiveRe = regexp.MustCompile(`(?i)\b(DROP\s+TABLE|DROP\s+COLUMN|TRUNCATE)\b`)
)

// ValidateDir validates migration files on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks filenames, goose headers and that Up sections are additive.
func ValidateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	seen := map[string]string{} // version -> filename

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}

		txt := string(b)
		upIdx := strings.Index(txt, "-- +goose Up")
		downIdx := strings.Index(txt, "-- +goose Down")
		if upIdx < 0 {
			return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if downIdx < 0 {
			return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
		if downIdx > upIdx && destructiveRe.MatchString(txt[upIdx:downIdx]) {
			return fmt.Errorf("migration %q is destructive; only additive changes are allowed", name)
		}
	}

	return nil
}
