package specification

import "gorm.io/gorm"

// Specification narrows a query. Repositories apply them in order, so
// filters compose with ordering and limits.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
