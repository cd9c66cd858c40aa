package specification

import "gorm.io/gorm"

// Specification is a composable query fragment. Repositories accept any
// number of them, so callers combine filters (unresolved escalations, a
// conversation's rows) with ordering and pagination without widening the
// repository contracts.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
