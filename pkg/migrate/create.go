package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultDir is where new migrations are written, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

const versionLayout = "20060102150405"

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration into dir, versioned at
// now. The new version must sort after every migration already in dir.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	existing, err := Validate(os.DirFS(dir))
	if err != nil {
		return "", err
	}
	version := now.UTC().Format(versionLayout)
	if n := len(existing); n > 0 && existing[n-1] >= version {
		return "", fmt.Errorf("version %s is not after latest migration %s", version, existing[n-1])
	}

	path := filepath.Join(dir, version+"_"+slug+".sql")
	if err := os.WriteFile(path, []byte(fmt.Sprintf(sqlTemplate, slug)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
