package services

import (
  "context"

  "gorm.io/gorm"
)

// runInTransaction wraps fn in a database transaction. A nil db (unit
// tests running against fake repos) runs fn directly with a nil tx, which
// every repo treats as "use your own handle".
func runInTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
  if db == nil {
    return fn(nil)
  }
  return db.WithContext(ctx).Transaction(fn)
}
