package db

import (
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Attempt runs fn inside a savepoint of tx. When fn fails only its own writes
// are rolled back and the enclosing transaction stays usable, which lets
// callers treat a step as optional.
func Attempt(tx *gorm.DB, name string, fn func(tx *gorm.DB) error) error {
	if tx == nil {
		return fmt.Errorf("savepoint %s: transaction required", name)
	}
	if err := tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback to %s: %w", name, rbErr))
		}
		return err
	}
	return nil
}
