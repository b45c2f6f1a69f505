package inventory

import (
	"context"

	"github.com/omnisync/backend/internal/domain/inventory"
)

// TransactionScope runs a function inside one database transaction.
// Returning an error from fn rolls the transaction back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are the repositories bound to the running transaction.
//
// Stock decrements, the deduction set and its journal rows of one order are
// written through these so they commit or roll back together.
type TransactionalRepositories interface {
	StockRepo() inventory.StockRepository
	DeductionRepo() inventory.DeductionRepository
}

// NoOpTransactionScope runs fn directly on the given repositories.
// Used by tests and by in-memory wiring.
type NoOpTransactionScope struct {
	stockRepo     inventory.StockRepository
	deductionRepo inventory.DeductionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(stockRepo inventory.StockRepository, deductionRepo inventory.DeductionRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{stockRepo: stockRepo, deductionRepo: deductionRepo}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockRepo returns the stock repository
func (s *NoOpTransactionScope) StockRepo() inventory.StockRepository {
	return s.stockRepo
}

// DeductionRepo returns the deduction repository
func (s *NoOpTransactionScope) DeductionRepo() inventory.DeductionRepository {
	return s.deductionRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
