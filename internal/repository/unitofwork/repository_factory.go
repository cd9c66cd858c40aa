package unitofwork

import "context"

// RepositoryFactory hands each conversation turn its own short-lived unit
// of work. Services depend on this interface, which keeps the chat flow
// testable with in-memory fakes.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
