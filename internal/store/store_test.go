package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/models"
)

func testOffer(id, bankID string) models.CreditOffer {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.CreditOffer{
		OfferID:            id,
		BankID:             bankID,
		BankName:           "Bank " + bankID,
		IntentID:           "intent-1",
		ApprovedAmount:     250_000,
		InterestRate:       4.5,
		CarbonAdjustedRate: 4.18,
		ProcessingFee:      250,
		RepaymentSchedule:  models.RepaymentMonthly,
		GracePeriodDays:    30,
		OfferValidUntil:    created.AddDate(0, 0, 7),
		CreatedAt:          created,
	}
}

func testIntent() models.CreditIntent {
	return models.CreditIntent{
		IntentID:       "intent-1",
		CompanyID:      "COMP_1",
		CompanyName:    "Acme",
		Amount:         250_000,
		Currency:       "USD",
		DurationMonths: 24,
		Purpose:        models.PurposeWorkingCapital,
		ESGPreferences: models.DefaultESGPreferences(),
		Urgency:        models.UrgencyNormal,
	}
}

func newMiniredisCache(t *testing.T) (*IntentCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewIntentCache(rdb, time.Hour), mr
}

// ==========================
// IntentCache
// ==========================

func TestIntentCache_IntentRoundTrip(t *testing.T) {
	cache, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutIntent(ctx, testIntent()))

	got, err := cache.GetIntent(ctx, "intent-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Equal(t, 0.3, got.ESGPreferences.SocialImpactWeight)

	status, err := cache.Status(ctx, "intent-1")
	require.NoError(t, err)
	assert.Equal(t, IntentStatusActive, status)
	assert.Equal(t, "COMP_1", mr.HGet("intent:intent-1", "company_id"))
	assert.Equal(t, time.Hour, mr.TTL("intent:intent-1"))

	require.NoError(t, cache.SetStatus(ctx, "intent-1", IntentStatusEvaluated))
	status, _ = cache.Status(ctx, "intent-1")
	assert.Equal(t, IntentStatusEvaluated, status)
}

func TestIntentCache_Missing(t *testing.T) {
	cache, _ := newMiniredisCache(t)
	ctx := context.Background()

	intent, err := cache.GetIntent(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, intent)

	offers, err := cache.GetOffers(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, offers)

	status, err := cache.Status(ctx, "nope")
	assert.NoError(t, err)
	assert.Empty(t, status)
}

func TestIntentCache_AppendOffers(t *testing.T) {
	cache, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.AppendOffers(ctx, "intent-1", testOffer("o-1", "BANK_A")))
	require.NoError(t, cache.AppendOffers(ctx, "intent-1", testOffer("o-2", "BANK_B"), testOffer("o-3", "BANK_C")))
	require.NoError(t, cache.AppendOffers(ctx, "intent-1"))

	offers, err := cache.GetOffers(ctx, "intent-1")
	require.NoError(t, err)
	require.Len(t, offers, 3)
	assert.Equal(t, "o-1", offers[0].OfferID)
	assert.Equal(t, "o-3", offers[2].OfferID)
	assert.Equal(t, 4.18, offers[1].CarbonAdjustedRate)
	assert.True(t, mr.TTL("intent:intent-1:offers") > 0)
}

func TestIntentCache_Expiry(t *testing.T) {
	cache, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutIntent(ctx, testIntent()))
	require.NoError(t, cache.AppendOffers(ctx, "intent-1", testOffer("o-1", "BANK_A")))

	mr.FastForward(2 * time.Hour)

	intent, err := cache.GetIntent(ctx, "intent-1")
	require.NoError(t, err)
	assert.Nil(t, intent)
	offers, err := cache.GetOffers(ctx, "intent-1")
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestIntentCache_Delete(t *testing.T) {
	cache, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutIntent(ctx, testIntent()))
	require.NoError(t, cache.AppendOffers(ctx, "intent-1", testOffer("o-1", "BANK_A")))
	require.NoError(t, cache.Delete(ctx, "intent-1"))

	assert.False(t, mr.Exists("intent:intent-1"))
	assert.False(t, mr.Exists("intent:intent-1:offers"))
}

func TestIntentCache_RedisErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewIntentCache(db, 0)
	ctx := context.Background()

	mock.ExpectHGet("intent:intent-1", "payload").SetErr(errors.New("connection reset"))
	_, err := cache.GetIntent(ctx, "intent-1")
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeCacheFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)

	mock.ExpectLRange("intent:intent-1:offers", 0, -1).SetErr(errors.New("connection reset"))
	_, err = cache.GetOffers(ctx, "intent-1")
	assert.Error(t, err)

	mock.ExpectHGet("intent:intent-2", "payload").SetVal("{not json")
	_, err = cache.GetIntent(ctx, "intent-2")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, DefaultIntentTTL, cache.ttl)
}

// ==========================
// OfferStore
// ==========================

func TestOfferStore_SaveBroadcast(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	offer := testOffer("0b5c1a4e-6f0e-4c59-9d8e-0d7f3c2b1a00", "BANK_A")
	result := models.BroadcastResult{
		IntentID:   "intent-1",
		BanksAsked: 2,
		Offers:     []models.CreditOffer{offer},
		Failures:   []models.BankFailure{{BankID: "BANK_B", Reason: models.FailureTimeout, Message: "no response within 30s"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO credit_offers`).
		WithArgs(
			offer.OfferID,
			"intent-1",
			"BANK_A",
			250_000.0,
			4.18,
			offer.OfferValidUntil,
			sqlmock.AnyArg(), // payload
			offer.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO broadcast_failures`).
		WithArgs("intent-1", "BANK_B", "timeout", "no response within 30s").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewOfferStore(db, logger.NewTestLogger(t))
	require.NoError(t, store.SaveBroadcast(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferStore_SaveBroadcast_InsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO credit_offers`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	store := NewOfferStore(db, logger.NewTestLogger(t))
	err = store.SaveBroadcast(context.Background(), models.BroadcastResult{
		IntentID: "intent-1",
		Offers:   []models.CreditOffer{testOffer("o-1", "BANK_A")},
	})

	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeOfferStoreFailed, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferStore_SaveEvaluations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	evals := []models.OfferEvaluation{
		{OfferID: "o-1", BankID: "BANK_A", TotalScore: 91.5, Recommendation: models.RecommendAccept, ScoringMode: models.ScoringIntentAware},
		{OfferID: "o-2", BankID: "BANK_B", TotalScore: 64.0, Recommendation: models.RecommendNegotiate, ScoringMode: models.ScoringIntentAware},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO offer_evaluations`)
	prep.ExpectExec().
		WithArgs("intent-1", "o-1", "BANK_A", 91.5, "accept", "intent_aware", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("intent-1", "o-2", "BANK_B", 64.0, "negotiate", "intent_aware", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	store := NewOfferStore(db, logger.NewTestLogger(t))
	require.NoError(t, store.SaveEvaluations(context.Background(), "intent-1", evals))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferStore_SaveEvaluations_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewOfferStore(db, logger.NewTestLogger(t))
	require.NoError(t, store.SaveEvaluations(context.Background(), "intent-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferStore_ListOffers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	first, _ := json.Marshal(testOffer("o-1", "BANK_A"))
	second, _ := json.Marshal(testOffer("o-2", "BANK_B"))

	mock.ExpectQuery(`SELECT payload FROM credit_offers`).
		WithArgs("intent-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(first).AddRow(second))

	store := NewOfferStore(db, logger.NewTestLogger(t))
	offers, err := store.ListOffers(context.Background(), "intent-1")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "BANK_B", offers[1].BankID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferStore_ListOffers_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT payload FROM credit_offers`).
		WithArgs("intent-9").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	store := NewOfferStore(db, logger.NewTestLogger(t))
	offers, err := store.ListOffers(context.Background(), "intent-9")
	require.NoError(t, err)
	assert.NotNil(t, offers)
	assert.Empty(t, offers)
}
