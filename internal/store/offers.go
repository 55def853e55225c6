// Package store persists marketplace state: an audit trail of offers and
// evaluations in Postgres and the per-intent working set in Redis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/models"
)

// OfferStore is the append-only audit of offers, evaluations and bank
// failures. Writes for one call happen in a single transaction.
type OfferStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewOfferStore(db *sql.DB, log logger.Logger) *OfferStore {
	return &OfferStore{db: db, logger: log}
}

// SaveBroadcast records every offer and failure of one broadcast. Offers
// already recorded are skipped.
func (s *OfferStore) SaveBroadcast(ctx context.Context, result models.BroadcastResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewOfferStoreError("begin", err)
	}
	defer tx.Rollback()

	for _, offer := range result.Offers {
		payload, err := json.Marshal(offer)
		if err != nil {
			return apperrors.NewOfferStoreError("marshal offer", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO credit_offers (
				offer_id, intent_id, bank_id, approved_amount,
				carbon_adjusted_rate, offer_valid_until, payload, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (offer_id) DO NOTHING`,
			offer.OfferID,
			offer.IntentID,
			offer.BankID,
			offer.ApprovedAmount,
			offer.CarbonAdjustedRate,
			offer.OfferValidUntil,
			payload,
			offer.CreatedAt,
		)
		if err != nil {
			return apperrors.NewOfferStoreError("insert offer", err)
		}
	}

	for _, f := range result.Failures {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO broadcast_failures (intent_id, bank_id, reason, message)
			VALUES ($1, $2, $3, $4)`,
			result.IntentID, f.BankID, string(f.Reason), f.Message,
		)
		if err != nil {
			return apperrors.NewOfferStoreError("insert failure", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewOfferStoreError("commit", err)
	}

	s.logger.Debug("broadcast recorded", map[string]interface{}{
		"intentId": result.IntentID,
		"offers":   len(result.Offers),
		"failures": len(result.Failures),
	})
	return nil
}

// SaveEvaluations records one ranked evaluation run. Rank is 1-based.
func (s *OfferStore) SaveEvaluations(ctx context.Context, intentID string, evaluations []models.OfferEvaluation) error {
	if len(evaluations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewOfferStoreError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO offer_evaluations (
			intent_id, offer_id, bank_id, total_score,
			recommendation, scoring_mode, rank, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return apperrors.NewOfferStoreError("prepare", err)
	}
	defer stmt.Close()

	for i, ev := range evaluations {
		payload, err := json.Marshal(ev)
		if err != nil {
			return apperrors.NewOfferStoreError("marshal evaluation", err)
		}
		if _, err := stmt.ExecContext(ctx,
			intentID, ev.OfferID, ev.BankID, ev.TotalScore,
			string(ev.Recommendation), string(ev.ScoringMode), i+1, payload,
		); err != nil {
			return apperrors.NewOfferStoreError("insert evaluation", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewOfferStoreError("commit", err)
	}
	return nil
}

// ListOffers returns the recorded offers for an intent, oldest first.
func (s *OfferStore) ListOffers(ctx context.Context, intentID string) ([]models.CreditOffer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM credit_offers
		WHERE intent_id = $1
		ORDER BY created_at ASC`, intentID)
	if err != nil {
		return nil, apperrors.NewOfferStoreError("query offers", err)
	}
	defer rows.Close()

	offers := []models.CreditOffer{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, apperrors.NewOfferStoreError("scan offer", err)
		}
		var offer models.CreditOffer
		if err := json.Unmarshal(payload, &offer); err != nil {
			return nil, apperrors.NewOfferStoreError("decode offer", fmt.Errorf("intent %s: %w", intentID, err))
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewOfferStoreError("iterate offers", err)
	}
	return offers, nil
}
