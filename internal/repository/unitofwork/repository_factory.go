package unitofwork

import "context"

// RepositoryFactory hands out a fresh unit of work per request. Services
// hold the factory, never a live transaction.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
