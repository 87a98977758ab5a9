package postgres

import (
	"context"
	"testing"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIdentifier = "TR330006100000000000000001"

func newTestAccount(owner string) *domain.Account {
	return &domain.Account{
		Identifier: testIdentifier,
		Balance:    decimal.Zero,
		Currency:   domain.CurrencyTRY,
		OwnerID:    owner,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func accountColumnNames() []string {
	return []string{"identifier", "owner_id", "currency", "balance", "created_at"}
}

func accountRow(a *domain.Account, balance string) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnNames()).AddRow(
		a.Identifier, a.OwnerID, string(a.Currency), balance, a.CreatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.Identifier, a.OwnerID, "TRY", "0", a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Create_DuplicateIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.Identifier, a.OwnerID, "TRY", "0", a.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err = repo.Create(context.Background(), a)
	assert.ErrorIs(t, err, ports.ErrDuplicateIdentifier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1")

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE identifier").
		WithArgs(a.Identifier).
		WillReturnRows(accountRow(a, "1250.50"))

	result, err := repo.GetByIdentifier(context.Background(), a.Identifier)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.Identifier, result.Identifier)
	assert.Equal(t, domain.CurrencyTRY, result.Currency)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(result.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIdentifier_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE identifier").
		WithArgs("TR00").
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))

	result, err := repo.GetByIdentifier(context.Background(), "TR00")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIdentifierForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE identifier .+ FOR UPDATE").
		WithArgs(a.Identifier).
		WillReturnRows(accountRow(a, "10"))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIdentifierForUpdate(context.Background(), tx, a.Identifier)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "user-1", result.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIdentifierForUpdate_LockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE identifier .+ FOR UPDATE").
		WithArgs(testIdentifier).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIdentifierForUpdate(context.Background(), tx, testIdentifier)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ports.ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIdentifierTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE identifier").
		WithArgs(a.Identifier).
		WillReturnRows(accountRow(a, "0.00"))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIdentifierTx(context.Background(), tx, a.Identifier)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Balance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ListByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE owner_id .+ ORDER BY created_at, identifier").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(accountColumnNames()).
			AddRow("TR01", "user-1", "TRY", "5", now).
			AddRow("TR02", "user-1", "USD", "0", now.Add(time.Second)))

	result, err := repo.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "TR01", result[0].Identifier)
	assert.Equal(t, domain.CurrencyUSD, result[1].Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ListByOwner_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE owner_id").
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows(accountColumnNames()))

	result, err := repo.ListByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs("750.25", testIdentifier).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, testIdentifier, decimal.RequireFromString("750.25"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs("1", testIdentifier).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, testIdentifier, decimal.NewFromInt(1))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
