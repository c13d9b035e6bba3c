package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountRowColumns = []string{"id", "tenant_id", "code", "name", "description", "account_type", "parent_id", "system_protected", "active", "version", "created_at", "updated_at"}

func testAccount() *account.Account {
	now := time.Now().UTC()
	return &account.Account{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Code:      "1010",
		Name:      "Cash",
		Type:      account.TypeAsset,
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func accountRows(accs ...*account.Account) *pgxmock.Rows {
	rows := pgxmock.NewRows(accountRowColumns)
	for _, a := range accs {
		rows.AddRow(a.ID, a.TenantID, a.Code, a.Name, a.Description, a.Type, a.ParentID, a.SystemProtected, a.Active, a.Version, a.CreatedAt, a.UpdatedAt)
	}
	return rows
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc := testAccount()
	query := regexp.QuoteMeta("INSERT INTO accounts (id, tenant_id, code, name, description, account_type, parent_id, system_protected, active, version, created_at, updated_at)")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.TenantID, acc.Code, acc.Name, acc.Description, acc.Type, acc.ParentID, acc.SystemProtected, acc.Active, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, acc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate code", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(anyArgs(12)...).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "uq_accounts_tenant_code"})

		err := repo.Create(ctx, acc)
		assert.ErrorIs(t, err, account.ErrDuplicateCode{})
		assert.Equal(t, shared.KindReferential, shared.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).WithArgs(anyArgs(12)...).WillReturnError(dbErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	expected := testAccount()
	query := regexp.QuoteMeta("FROM accounts WHERE id = $1")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(accountRows(expected))

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.Nil(t, acc)
		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, expected.ID, notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to get account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByCode(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	expected := testAccount()
	query := regexp.QuoteMeta("FROM accounts WHERE tenant_id = $1 AND code = $2")

	mock.ExpectQuery(query).WithArgs(expected.TenantID, "1010").WillReturnRows(accountRows(expected))
	acc, err := repo.GetByCode(ctx, expected.TenantID, "1010")
	assert.NoError(t, err)
	assert.Equal(t, expected, acc)

	mock.ExpectQuery(query).WithArgs(expected.TenantID, "9999").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByCode(ctx, expected.TenantID, "9999")
	assert.ErrorIs(t, err, account.ErrAccountNotFound{Code: "9999"})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_ListByType(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	a, b := testAccount(), testAccount()
	b.Code = "1100"
	b.TenantID = a.TenantID

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = $1 AND account_type = $2 ORDER BY code ASC")).
		WithArgs(a.TenantID, account.TypeAsset).
		WillReturnRows(accountRows(a, b))

	accounts, err := repo.ListByType(ctx, a.TenantID, account.TypeAsset)
	require.NoError(t, err)
	assert.Equal(t, []*account.Account{a, b}, accounts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("UPDATE accounts SET name = $1, description = $2, account_type = $3, parent_id = $4, active = $5, version = version + 1, updated_at = $6 WHERE id = $7 AND version = $8")

	t.Run("success bumps version", func(t *testing.T) {
		acc := testAccount()
		mock.ExpectExec(query).
			WithArgs(acc.Name, acc.Description, acc.Type, acc.ParentID, acc.Active, acc.UpdatedAt, acc.ID, 1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Update(ctx, acc))
		assert.Equal(t, 2, acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		acc := testAccount()
		mock.ExpectExec(query).
			WithArgs(acc.Name, acc.Description, acc.Type, acc.ParentID, acc.Active, acc.UpdatedAt, acc.ID, 1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, acc)
		assert.ErrorIs(t, err, account.ErrConcurrentModification{AccountID: acc.ID})
		assert.Equal(t, 1, acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	expected := testAccount()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR UPDATE")).
		WithArgs(expected.ID).
		WillReturnRows(accountRows(expected))

	acc, err := repo.LockForUpdate(ctx, expected.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, acc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_LockForShare(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	expected := testAccount()

	t.Run("locked read", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR SHARE")).
			WithArgs(expected.ID).
			WillReturnRows(accountRows(expected))

		acc, err := repo.LockForShare(ctx, expected.ID)
		require.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR SHARE")).
			WithArgs(missing).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForShare(ctx, missing)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: missing})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_WithTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: nil, logger: newTestLogger()}

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	txRepo := repo.WithTx(tx)
	assert.Equal(t, tx, txRepo.querier)
	assert.Equal(t, repo.logger, txRepo.logger)
}
