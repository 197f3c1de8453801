// Package naming resolves human-readable record names that must be unique.
package naming

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxAttempts bounds the number of suffixes tried before giving up.
const MaxAttempts = 10000

var ErrEmptyBase = errors.New("base name is required")

// ExistsFunc reports whether a record with the given name already exists.
type ExistsFunc func(ctx context.Context, name string) (bool, error)

// ResolveUniqueName returns base when it is free, otherwise the first free
// "base-1", "base-2", ... candidate.
func ResolveUniqueName(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", ErrEmptyBase
	}
	if exists == nil {
		return "", errors.New("exists func is required")
	}

	candidate := base
	for i := 1; i <= MaxAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check name %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free name for %q after %d attempts", base, MaxAttempts)
}

// FullName joins name parts, skipping blanks.
func FullName(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, " ")
}

// SplitFullName splits on whitespace: the first token is the first name and
// the rest, joined by single spaces, the last name.
func SplitFullName(full string) (first, last string) {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
