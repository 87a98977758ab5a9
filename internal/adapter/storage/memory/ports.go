package memory

import "account-ledger/internal/core/ports"

var (
	_ ports.AccountRepository     = (*AccountRepo)(nil)
	_ ports.TransactionRepository = (*TransactionRepo)(nil)
	_ ports.IdempotencyRepository = (*IdempotencyRepo)(nil)
	_ ports.DBTransactor          = (*Transactor)(nil)
	_ ports.AccountLocker         = (*AccountLocker)(nil)
)
