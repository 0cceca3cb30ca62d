package postgres

import (
	"context"
	"testing"
	"time"

	"nutpay/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord() *domain.TokenRecord {
	rec := domain.NewTokenRecord("cashuAexample", "https://mint.example.com", "sat", 42)
	rec.CreatedAt = rec.CreatedAt.Truncate(time.Microsecond)
	rec.UpdatedAt = rec.UpdatedAt.Truncate(time.Microsecond)
	return rec
}

func tokenCols() []string {
	return []string{"id", "encoded_token", "raw_token", "mint_url", "unit", "amount", "state", "error_text", "deleted", "created_at", "updated_at"}
}

func tokenRow(rec *domain.TokenRecord) *pgxmock.Rows {
	return pgxmock.NewRows(tokenCols()).AddRow(
		rec.ID, rec.EncodedToken, rec.RawToken, rec.MintURL, rec.Unit,
		int64(rec.Amount), string(rec.State), rec.ErrorText, rec.Deleted,
		rec.CreatedAt, rec.UpdatedAt,
	)
}

func TestTokenRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	rec := newTestRecord()

	mock.ExpectExec("INSERT INTO tokens").
		WithArgs(rec.ID, rec.EncodedToken, rec.RawToken, rec.MintURL, rec.Unit,
			int64(rec.Amount), string(rec.State), rec.ErrorText, rec.Deleted,
			rec.CreatedAt, rec.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Insert(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_SoftDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	rec := newTestRecord()

	mock.ExpectExec("UPDATE tokens SET deleted = TRUE").
		WithArgs(rec.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.SoftDelete(context.Background(), rec.ID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ListLive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	rec := newTestRecord()

	mock.ExpectQuery("SELECT .+ FROM tokens").
		WillReturnRows(tokenRow(rec))

	out, err := repo.ListLive(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, rec.ID, out[0].ID)
	assert.Equal(t, uint64(42), out[0].Amount)
	assert.Equal(t, domain.TokenStateAccepted, out[0].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_FindByText(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	rec := newTestRecord()

	mock.ExpectQuery("SELECT .+ FROM tokens").
		WithArgs(rec.EncodedToken).
		WillReturnRows(tokenRow(rec))

	out, err := repo.FindByText(context.Background(), rec.EncodedToken)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, rec.ID, out.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_FindByText_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM tokens").
		WithArgs("cashuAmissing").
		WillReturnRows(pgxmock.NewRows(tokenCols()))

	out, err := repo.FindByText(context.Background(), "cashuAmissing")
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromiseRepo_InsertAndScan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPromiseRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := &domain.PromiseRecord{
		PromiseID: "abc123",
		Token: domain.PromiseToken{
			ID: "abc123",
			Payload: domain.PromisePayload{
				Type:      domain.PayloadTypePromise,
				Issuer:    "aa",
				Recipient: "bb",
				Amount:    100,
				Unit:      "sat",
			},
			Signature: "cc",
		},
		Direction: domain.PromiseIssued,
		Valid:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tokenJSON, settlementJSON, err := marshalPromise(rec)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO promises").
		WithArgs(rec.PromiseID, tokenJSON, string(rec.Direction), rec.Valid,
			int64(0), settlementJSON, rec.Deleted, rec.CreatedAt, rec.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), rec))

	mock.ExpectQuery("SELECT .+ FROM promises").
		WithArgs(rec.PromiseID).
		WillReturnRows(pgxmock.NewRows([]string{
			"promise_id", "token", "direction", "valid", "settled_amount",
			"settlement_ids", "deleted", "created_at", "updated_at",
		}).AddRow(
			rec.PromiseID, tokenJSON, string(rec.Direction), rec.Valid,
			int64(0), settlementJSON, rec.Deleted, rec.CreatedAt, rec.UpdatedAt,
		))

	out, err := repo.Get(context.Background(), rec.PromiseID)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, rec.Token.Payload.Amount, out.Token.Payload.Amount)
	assert.Equal(t, rec.Direction, out.Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}
