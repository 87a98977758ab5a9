package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxIdentifierAttempts = 5
	// maxAmountScale matches the NUMERIC(28,8) balance column.
	maxAmountScale = 8
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	idempRepo   ports.IdempotencyRepository
	idempCache  ports.IdempotencyCache
	locker      ports.AccountLocker
	transactor  ports.DBTransactor
	idGen       ports.IdentifierGenerator
	events      ports.EventPublisher
	idempTTL    time.Duration
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
// idempCache and events are optional and may be nil.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	locker ports.AccountLocker,
	transactor ports.DBTransactor,
	idGen ports.IdentifierGenerator,
	events ports.EventPublisher,
	idempTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		idempRepo:   idempRepo,
		idempCache:  idempCache,
		locker:      locker,
		transactor:  transactor,
		idGen:       idGen,
		events:      events,
		idempTTL:    idempTTL,
		log:         log,
	}
}

// OpenAccount creates an empty account for principalID, retrying on identifier collisions.
func (s *LedgerServiceImpl) OpenAccount(ctx context.Context, principalID string, currency domain.Currency) (*domain.Account, error) {
	if principalID == "" {
		return nil, apperror.ErrForbidden()
	}
	if !currency.IsValid() {
		return nil, apperror.ErrInvalidOperation(fmt.Sprintf("unsupported currency %q", currency))
	}

	for attempt := 1; attempt <= maxIdentifierAttempts; attempt++ {
		identifier, err := s.idGen.Generate()
		if err != nil {
			return nil, apperror.ErrStoreFailure(fmt.Errorf("generate identifier: %w", err))
		}

		account := &domain.Account{
			Identifier: identifier,
			Balance:    decimal.Zero,
			Currency:   currency,
			OwnerID:    principalID,
			CreatedAt:  time.Now().UTC(),
		}

		err = s.accountRepo.Create(ctx, account)
		if errors.Is(err, ports.ErrDuplicateIdentifier) {
			s.log.Warn().Str("identifier", identifier).Int("attempt", attempt).Msg("identifier collision, regenerating")
			continue
		}
		if err != nil {
			return nil, apperror.ErrStoreFailure(fmt.Errorf("create account: %w", err))
		}

		s.log.Info().
			Str("identifier", identifier).
			Str("owner_id", principalID).
			Str("currency", string(currency)).
			Msg("account opened")
		return account, nil
	}

	return nil, apperror.ErrStoreFailure(fmt.Errorf("no unique identifier after %d attempts", maxIdentifierAttempts))
}

// ListAccounts returns every account owned by principalID.
func (s *LedgerServiceImpl) ListAccounts(ctx context.Context, principalID string) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListByOwner(ctx, principalID)
	if err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

// GetCurrency returns the currency of an account owned by principalID.
func (s *LedgerServiceImpl) GetCurrency(ctx context.Context, principalID, identifier string) (domain.Currency, error) {
	account, err := s.accountRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return "", apperror.ErrStoreFailure(fmt.Errorf("get account: %w", err))
	}
	if err := authorize(account, principalID); err != nil {
		return "", err
	}
	return account.Currency, nil
}

// GetDetails returns the account and its full movement history from one snapshot.
func (s *LedgerServiceImpl) GetDetails(ctx context.Context, principalID, identifier string) (*domain.AccountDetails, error) {
	dbTx, err := s.transactor.BeginReadOnly(ctx)
	if err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("begin snapshot: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIdentifierTx(ctx, dbTx, identifier)
	if err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("get account: %w", err))
	}
	if err := authorize(account, principalID); err != nil {
		return nil, err
	}

	history, err := s.txRepo.ListByIdentifier(ctx, dbTx, identifier)
	if err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("list transactions: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("end snapshot: %w", err))
	}

	return &domain.AccountDetails{Account: *account, Transactions: history}, nil
}

// ApplyMovement validates, locks, mutates and logs a single movement.
func (s *LedgerServiceImpl) ApplyMovement(ctx context.Context, req ports.MovementRequest) (*domain.Transaction, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	var claim *idempotencyClaim
	if req.RequestID != "" {
		claim = &idempotencyClaim{
			key:         domain.BuildIdempotencyKey(req.PrincipalID, req.RequestID),
			fingerprint: domain.MovementFingerprint(req.Kind, req.Identifier, req.CounterpartyIdentifier, req.Amount),
		}
		txn, err := s.cachedMovement(ctx, claim)
		if err != nil || txn != nil {
			return txn, err
		}
	}

	unlock, err := s.locker.Lock(ctx, movementParties(req)...)
	if err != nil {
		return nil, lockError(err)
	}
	res, err := s.applyLocked(ctx, req, claim)
	unlock()
	if err != nil {
		return nil, err
	}

	if claim != nil {
		s.cacheMovement(ctx, claim, res.txn)
	}
	if res.replayed {
		return res.txn, nil
	}

	if s.events != nil {
		if err := s.events.PublishMovement(ctx, domain.NewMovementCommitted(req.PrincipalID, *res.txn)); err != nil {
			s.log.Warn().Err(err).Int64("tx_id", res.txn.ID).Msg("failed to publish movement event")
		}
	}

	s.log.Info().
		Int64("tx_id", res.txn.ID).
		Str("kind", string(res.txn.Kind)).
		Str("identifier", req.Identifier).
		Str("counterparty", req.CounterpartyIdentifier).
		Str("amount", res.txn.Amount.String()).
		Msg("movement applied")

	return res.txn, nil
}

type movementResult struct {
	txn      *domain.Transaction
	replayed bool
}

// idempotencyClaim is a request's idempotency key plus the fingerprint of the
// movement it asks for. A key replays only for a matching fingerprint.
type idempotencyClaim struct {
	key         string
	fingerprint string
}

type balanceUpdate struct {
	identifier string
	balance    decimal.Decimal
}

// applyLocked runs the movement inside one DB transaction. Caller holds the account locks.
func (s *LedgerServiceImpl) applyLocked(ctx context.Context, req ports.MovementRequest, claim *idempotencyClaim) (*movementResult, error) {
	if claim != nil {
		if res, err := s.loggedMovement(ctx, claim); res != nil || err != nil {
			return res, err
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storeError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	updates, err := s.planMovement(ctx, dbTx, req)
	if err != nil {
		return nil, err
	}

	for _, u := range updates {
		if err := s.accountRepo.UpdateBalance(ctx, dbTx, u.identifier, u.balance); err != nil {
			return nil, storeError("update balance", err)
		}
	}

	txn := domain.NewTransaction(req.Kind, req.Identifier, req.CounterpartyIdentifier, req.Amount, time.Time{})
	if err := s.txRepo.Create(ctx, dbTx, &txn); err != nil {
		return nil, storeError("create transaction", err)
	}

	if claim != nil {
		respJSON, err := json.Marshal(txn)
		if err != nil {
			return nil, apperror.ErrStoreFailure(fmt.Errorf("marshal response: %w", err))
		}
		entry := &domain.IdempotencyLog{
			Key:           claim.key,
			Fingerprint:   claim.fingerprint,
			TransactionID: txn.ID,
			ResponseJSON:  respJSON,
			CreatedAt:     txn.Timestamp,
		}
		if err := s.idempRepo.Create(ctx, dbTx, entry); err != nil {
			return s.duplicateOr(ctx, claim, "save idempotency log", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		if claim != nil {
			return s.duplicateOr(ctx, claim, "commit tx", err)
		}
		return nil, storeError("commit tx", err)
	}

	return &movementResult{txn: &txn}, nil
}

// planMovement locks the involved rows and computes the new balances.
func (s *LedgerServiceImpl) planMovement(ctx context.Context, dbTx pgx.Tx, req ports.MovementRequest) ([]balanceUpdate, error) {
	locked := make(map[string]*domain.Account, 2)
	for _, id := range domain.LockOrder(movementParties(req)...) {
		account, err := s.accountRepo.GetByIdentifierForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, storeError("lock account", err)
		}
		locked[id] = account
	}

	source := locked[req.Identifier]
	if err := authorize(source, req.PrincipalID); err != nil {
		return nil, err
	}

	switch req.Kind {
	case domain.TransactionKindDeposit:
		return []balanceUpdate{{source.Identifier, source.Balance.Add(req.Amount)}}, nil

	case domain.TransactionKindWithdraw:
		if !source.CanCover(req.Amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		return []balanceUpdate{{source.Identifier, source.Balance.Sub(req.Amount)}}, nil

	case domain.TransactionKindTransfer:
		dest := locked[req.CounterpartyIdentifier]
		if dest == nil {
			return nil, apperror.ErrNotFound("destination account")
		}
		if dest.Currency != source.Currency {
			return nil, apperror.ErrInvalidOperation(fmt.Sprintf(
				"currency mismatch: %s account cannot receive %s", dest.Currency, source.Currency))
		}
		if !source.CanCover(req.Amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		updates := []balanceUpdate{
			{source.Identifier, source.Balance.Sub(req.Amount)},
			{dest.Identifier, dest.Balance.Add(req.Amount)},
		}
		if dest.Identifier < source.Identifier {
			updates[0], updates[1] = updates[1], updates[0]
		}
		return updates, nil

	default:
		return nil, apperror.ErrInvalidOperation(fmt.Sprintf("unsupported transaction kind %q", req.Kind))
	}
}

// cachedMovement is the fast-path replay from the idempotency cache.
// Cache failures fall through to the log; a fingerprint mismatch does not.
func (s *LedgerServiceImpl) cachedMovement(ctx context.Context, claim *idempotencyClaim) (*domain.Transaction, error) {
	if s.idempCache == nil {
		return nil, nil
	}
	cached, err := s.idempCache.Get(ctx, claim.key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", claim.key).Msg("redis idempotency check failed, falling through to DB")
		return nil, nil
	}
	if cached == nil {
		return nil, nil
	}
	var replay domain.MovementReplay
	if err := json.Unmarshal(cached, &replay); err != nil || replay.Fingerprint == "" {
		s.log.Warn().Err(err).Str("key", claim.key).Msg("discarding unreadable cached response")
		return nil, nil
	}
	if replay.Fingerprint != claim.fingerprint {
		return nil, apperror.ErrRequestIDReused()
	}
	return &replay.Transaction, nil
}

// cacheMovement stores txn as the replay for claim. Failures are only logged.
func (s *LedgerServiceImpl) cacheMovement(ctx context.Context, claim *idempotencyClaim, txn *domain.Transaction) {
	if s.idempCache == nil {
		return
	}
	value, err := json.Marshal(domain.MovementReplay{Fingerprint: claim.fingerprint, Transaction: *txn})
	if err == nil {
		err = s.idempCache.Set(ctx, claim.key, value, s.idempTTL)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", claim.key).Msg("failed to cache idempotency in redis")
	}
}

// loggedMovement replays a movement recorded in the idempotency log, if any.
func (s *LedgerServiceImpl) loggedMovement(ctx context.Context, claim *idempotencyClaim) (*movementResult, error) {
	entry, err := s.idempRepo.Get(ctx, claim.key)
	if err != nil {
		return nil, storeError("db idempotency check", err)
	}
	if entry == nil {
		return nil, nil
	}
	if entry.Fingerprint != claim.fingerprint {
		return nil, apperror.ErrRequestIDReused()
	}
	var txn domain.Transaction
	if err := json.Unmarshal(entry.ResponseJSON, &txn); err != nil {
		return nil, apperror.ErrStoreFailure(fmt.Errorf("unmarshal logged response: %w", err))
	}
	return &movementResult{txn: &txn, replayed: true}, nil
}

// duplicateOr replays the winner when a concurrent request committed the same key first.
func (s *LedgerServiceImpl) duplicateOr(ctx context.Context, claim *idempotencyClaim, op string, err error) (*movementResult, error) {
	if !errors.Is(err, ports.ErrDuplicateIdempotencyKey) {
		return nil, storeError(op, err)
	}
	res, lookupErr := s.loggedMovement(ctx, claim)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if res == nil {
		return nil, storeError(op, err)
	}
	return res, nil
}

// authorize applies the ownership guard. A missing account is NotFound, never Forbidden.
func authorize(account *domain.Account, principalID string) error {
	if account == nil {
		return apperror.ErrNotFound("account")
	}
	if !account.IsOwnedBy(principalID) {
		return apperror.ErrForbidden()
	}
	return nil
}

func validateMovement(req ports.MovementRequest) error {
	if !req.Kind.IsValid() {
		return apperror.ErrInvalidOperation(fmt.Sprintf("unsupported transaction kind %q", req.Kind))
	}
	if !req.Amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if !req.Amount.Equal(req.Amount.Truncate(maxAmountScale)) {
		return apperror.New(apperror.CodeInvalidAmount,
			fmt.Sprintf("Amount supports at most %d decimal places", maxAmountScale), http.StatusBadRequest)
	}
	if req.Identifier == "" {
		return apperror.ErrInvalidOperation("account identifier is required")
	}
	if req.RequestID != "" && !domain.ValidRequestID(req.RequestID) {
		return apperror.ErrInvalidOperation(fmt.Sprintf(
			"request ID must be 1-%d letters, digits, '_', '-' or '.'", domain.MaxRequestIDLength))
	}
	if req.Kind == domain.TransactionKindTransfer {
		if req.CounterpartyIdentifier == "" {
			return apperror.ErrInvalidOperation("transfer requires a destination account")
		}
		if req.CounterpartyIdentifier == req.Identifier {
			return apperror.ErrInvalidOperation("cannot transfer to the same account")
		}
	}
	return nil
}

// movementParties lists the accounts a movement locks. Only TRANSFER has a counterparty.
func movementParties(req ports.MovementRequest) []string {
	if req.Kind == domain.TransactionKindTransfer {
		return []string{req.Identifier, req.CounterpartyIdentifier}
	}
	return []string{req.Identifier}
}

func lockError(err error) error {
	switch {
	case errors.Is(err, ports.ErrLockTimeout),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return apperror.ErrBusy(err)
	}
	return apperror.ErrStoreFailure(fmt.Errorf("lock accounts: %w", err))
}

func storeError(op string, err error) error {
	if errors.Is(err, ports.ErrLockTimeout) {
		return apperror.ErrBusy(fmt.Errorf("%s: %w", op, err))
	}
	return apperror.ErrStoreFailure(fmt.Errorf("%s: %w", op, err))
}
