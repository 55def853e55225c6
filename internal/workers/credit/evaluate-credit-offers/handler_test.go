package evaluatecreditoffers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/evaluation"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/notify"
	"credit-marketplace/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyOffersReady(ctx context.Context, msg notify.OffersReady) (notify.Result, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(notify.Result), args.Error(1)
}

type brokenIntents struct{}

func (brokenIntents) GetIntent(context.Context, string) (*models.CreditIntent, error) {
	return nil, apperrors.NewCacheError("get intent", errors.New("connection reset by peer"))
}

func (brokenIntents) SetStatus(context.Context, string, string) error { return nil }

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createTestIntent() models.CreditIntent {
	return models.CreditIntent{
		IntentID:       "intent-001",
		CompanyID:      "COMP-42",
		CompanyName:    "Solar Fabrication Ltd",
		Amount:         500000,
		Currency:       "USD",
		DurationMonths: 36,
		Purpose:        models.PurposeEquipment,
		ESGPreferences: models.DefaultESGPreferences(),
		Urgency:        models.UrgencyNormal,
	}
}

// createTestOffers returns a strong green offer from BANK_A and a weaker,
// pricier one from BANK_B.
func createTestOffers() []models.CreditOffer {
	validUntil := time.Now().Add(7*24*time.Hour + time.Hour)
	return []models.CreditOffer{
		{
			OfferID:            "offer-b",
			BankID:             "BANK_B",
			BankName:           "EcoFinance Corp",
			IntentID:           "intent-001",
			ApprovedAmount:     300000,
			CarbonAdjustedRate: 7.5,
			ProcessingFee:      300,
			CollateralRequired: true,
			ESGScore:           models.ESGScore{Environmental: 5, Social: 5, Governance: 5, Overall: 5},
			RepaymentSchedule:  models.RepaymentMonthly,
			OfferValidUntil:    validUntil,
		},
		{
			OfferID:            "offer-a",
			BankID:             "BANK_A",
			BankName:           "GreenTech Bank",
			IntentID:           "intent-001",
			ApprovedAmount:     500000,
			CarbonAdjustedRate: 4.18,
			ProcessingFee:      500,
			ESGScore: models.ESGScore{
				Environmental: 9, Social: 8, Governance: 8, Overall: 9,
				CarbonFootprintCategory: models.FootprintLow,
			},
			RepaymentSchedule: models.RepaymentMonthly,
			GracePeriodDays:   30,
			OfferValidUntil:   validUntil,
		},
	}
}

func createTestCache(t *testing.T) (*store.IntentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return store.NewIntentCache(rdb, time.Hour), mr
}

func createTestHandler(t *testing.T, cache *store.IntentCache, deps Dependencies) *Handler {
	log := logger.NewTestLogger(t)
	evaluator := evaluation.NewEvaluator(evaluation.IntentAwareEngine{}, nil, cache, log)
	if deps.Intents == nil {
		deps.Intents = cache
	}
	return NewHandler(createTestConfig(), evaluator, deps, log)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_FromCache(t *testing.T) {
	ctx := context.Background()
	cache, _ := createTestCache(t)
	require.NoError(t, cache.PutIntent(ctx, createTestIntent()))
	require.NoError(t, cache.AppendOffers(ctx, "intent-001", createTestOffers()...))

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectBegin()
	prep := sqlMock.ExpectPrepare(`INSERT INTO offer_evaluations`)
	prep.ExpectExec().
		WithArgs("intent-001", "offer-a", "BANK_A", sqlmock.AnyArg(), sqlmock.AnyArg(), "intent_aware", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("intent-001", "offer-b", "BANK_B", sqlmock.AnyArg(), sqlmock.AnyArg(), "intent_aware", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	sqlMock.ExpectCommit()

	notifier := new(MockNotifier)
	notifier.On("NotifyOffersReady", mock.Anything, mock.MatchedBy(func(msg notify.OffersReady) bool {
		return msg.IntentID == "intent-001" &&
			msg.CompanyName == "Solar Fabrication Ltd" &&
			msg.ContactEmail == "cfo@solarfab.example" &&
			msg.OfferCount == 2 &&
			msg.BanksAsked == 3 &&
			msg.Best != nil && msg.Best.OfferID == "offer-a"
	})).Return(notify.Result{MessageID: "msg-1"}, nil)

	h := createTestHandler(t, cache, Dependencies{
		Audit:    store.NewOfferStore(db, logger.NewTestLogger(t)),
		Notifier: notifier,
	})

	output, err := h.Execute(ctx, &Input{
		IntentID:     "intent-001",
		BanksAsked:   3,
		ContactEmail: "cfo@solarfab.example",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, output.OfferCount)
	require.Len(t, output.Evaluations, 2)
	assert.Equal(t, "offer-a", output.BestOfferID)
	assert.Equal(t, "BANK_A", output.BestBankID)
	assert.Equal(t, models.ScoringIntentAware, output.ScoringMode)
	assert.GreaterOrEqual(t, output.Evaluations[0].TotalScore, output.Evaluations[1].TotalScore)
	assert.True(t, output.Notified)

	status, err := cache.Status(ctx, "intent-001")
	require.NoError(t, err)
	assert.Equal(t, store.IntentStatusEvaluated, status)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	notifier.AssertExpectations(t)
}

func TestHandler_Execute_DegradedWithoutIntent(t *testing.T) {
	ctx := context.Background()
	cache, _ := createTestCache(t)
	require.NoError(t, cache.AppendOffers(ctx, "intent-001", createTestOffers()...))

	h := createTestHandler(t, cache, Dependencies{})

	output, err := h.Execute(ctx, &Input{IntentID: "intent-001"})
	require.NoError(t, err)

	require.Len(t, output.Evaluations, 2)
	assert.Equal(t, models.ScoringIntentAgnostic, output.ScoringMode)
	assert.Equal(t, "offer-a", output.BestOfferID)
	assert.False(t, output.Notified)

	status, err := cache.Status(ctx, "intent-001")
	require.NoError(t, err)
	assert.Empty(t, status, "an uncached intent must not gain a status entry")
}

func TestHandler_Execute_ExplicitOffers(t *testing.T) {
	cache, _ := createTestCache(t)
	h := createTestHandler(t, cache, Dependencies{})

	in := createTestIntent()
	output, err := h.Execute(context.Background(), &Input{Intent: &in, Offers: createTestOffers()})
	require.NoError(t, err)

	assert.Equal(t, "intent-001", output.IntentID)
	assert.Equal(t, "offer-a", output.BestOfferID)
	assert.Equal(t, models.RecommendAccept, output.Recommendation)
}

func TestHandler_Execute_NoOffers(t *testing.T) {
	ctx := context.Background()
	cache, _ := createTestCache(t)
	require.NoError(t, cache.PutIntent(ctx, createTestIntent()))

	notifier := new(MockNotifier)
	notifier.On("NotifyOffersReady", mock.Anything, mock.MatchedBy(func(msg notify.OffersReady) bool {
		return msg.OfferCount == 0 && msg.Best == nil
	})).Return(notify.Result{Emailed: true}, nil)

	h := createTestHandler(t, cache, Dependencies{Notifier: notifier})

	output, err := h.Execute(ctx, &Input{IntentID: "intent-001", ContactEmail: "cfo@solarfab.example"})
	require.NoError(t, err)

	assert.Equal(t, 0, output.OfferCount)
	assert.Empty(t, output.Evaluations)
	assert.Empty(t, output.BestOfferID)
	assert.True(t, output.Notified)
	notifier.AssertExpectations(t)
}

func TestHandler_Execute_NotificationFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	cache, _ := createTestCache(t)
	require.NoError(t, cache.PutIntent(ctx, createTestIntent()))
	require.NoError(t, cache.AppendOffers(ctx, "intent-001", createTestOffers()...))

	notifier := new(MockNotifier)
	notifier.On("NotifyOffersReady", mock.Anything, mock.Anything).
		Return(notify.Result{}, apperrors.NewNotificationSendFailedError("sns", errors.New("throttled")))

	h := createTestHandler(t, cache, Dependencies{Notifier: notifier})

	output, err := h.Execute(ctx, &Input{IntentID: "intent-001"})
	require.NoError(t, err)
	assert.Len(t, output.Evaluations, 2)
	assert.False(t, output.Notified)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		deps     Dependencies
		input    *Input
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "missing intent id",
			input:    &Input{},
			wantCode: apperrors.ErrCodeIntentNotFound,
		},
		{
			name:     "cache unavailable",
			deps:     Dependencies{Intents: brokenIntents{}},
			input:    &Input{IntentID: "intent-001"},
			wantCode: apperrors.ErrCodeCacheFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, _ := createTestCache(t)
			h := createTestHandler(t, cache, tt.deps)

			output, err := h.Execute(context.Background(), tt.input)
			assert.Nil(t, output)
			require.Error(t, err)

			var stdErr *apperrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}
