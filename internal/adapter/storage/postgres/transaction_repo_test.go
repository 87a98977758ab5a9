package postgres

import (
	"context"
	"testing"
	"time"

	"account-ledger/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func txColumns() []string {
	return []string{"id", "kind", "sender_identifier", "receiver_identifier", "amount", "created_at"}
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	txn := domain.NewTransaction(domain.TransactionKindTransfer, "TR01", "TR02", decimal.RequireFromString("250"), time.Time{})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO transactions .+ RETURNING id, created_at").
		WithArgs("TRANSFER", strPtr("TR01"), strPtr("TR02"), "250").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, &txn)
	require.NoError(t, err)
	assert.Equal(t, int64(42), txn.ID)
	assert.Equal(t, now, txn.Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_Deposit_NullSender(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := domain.NewTransaction(domain.TransactionKindDeposit, "TR01", "", decimal.RequireFromString("500.00"), time.Time{})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs("DEPOSIT", (*string)(nil), strPtr("TR01"), "500").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), dbTx, &txn))
	assert.Equal(t, int64(1), txn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := domain.NewTransaction(domain.TransactionKindWithdraw, "TR01", "", decimal.NewFromInt(1), time.Time{})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs("WITHDRAW", strPtr("TR01"), (*string)(nil), "1").
		WillReturnError(assert.AnError)

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, &txn)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, txn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM transactions\\s+WHERE sender_identifier = \\$1 OR receiver_identifier = \\$1\\s+ORDER BY id DESC").
		WithArgs("TR01").
		WillReturnRows(pgxmock.NewRows(txColumns()).
			AddRow(int64(2), domain.TransactionKindTransfer, strPtr("TR01"), strPtr("TR02"), "250.00", now).
			AddRow(int64(1), domain.TransactionKindDeposit, (*string)(nil), strPtr("TR01"), "1000.00", now.Add(-time.Second)))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ListByIdentifier(context.Background(), dbTx, "TR01")
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, int64(2), result[0].ID)
	assert.Equal(t, domain.TransactionKindTransfer, result[0].Kind)
	assert.Equal(t, "TR02", *result[0].ReceiverIdentifier)
	assert.True(t, decimal.RequireFromString("250").Equal(result[0].Amount))

	assert.Equal(t, domain.TransactionKindDeposit, result[1].Kind)
	assert.Nil(t, result[1].SenderIdentifier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByIdentifier_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM transactions").
		WithArgs("TR09").
		WillReturnRows(pgxmock.NewRows(txColumns()))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ListByIdentifier(context.Background(), dbTx, "TR09")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
