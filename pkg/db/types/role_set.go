package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// RoleSet persists account roles as a Postgres text array literal. The same
// literal round-trips through sqlite text columns.
type RoleSet []enums.Role

func (r *RoleSet) Scan(src any) error {
	if src == nil {
		*r = RoleSet{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return r.parseFromString(v)
	case []byte:
		return r.parseFromString(string(v))
	default:
		return fmt.Errorf("RoleSet: unsupported Scan type %T", src)
	}
}

func (r RoleSet) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(r))
	for _, role := range r {
		parts = append(parts, string(role))
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Has reports whether the set contains role.
func (r RoleSet) Has(role enums.Role) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

// Add returns the set with role appended when missing.
func (r RoleSet) Add(role enums.Role) RoleSet {
	if r.Has(role) {
		return r
	}
	return append(r, role)
}

// Strings returns the roles as plain strings.
func (r RoleSet) Strings() []string {
	out := make([]string, 0, len(r))
	for _, role := range r {
		out = append(out, string(role))
	}
	return out
}

func (r *RoleSet) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*r = RoleSet{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make(RoleSet, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(strings.Trim(item, `"`))
		role, err := enums.ParseRole(item)
		if err != nil {
			return fmt.Errorf("RoleSet: %w", err)
		}
		out = append(out, role)
	}
	*r = out
	return nil
}
