// Package bankapi serves one bank's offer generator over HTTP.
package bankapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/intent"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/offer"
)

const defaultRequestTimeout = 25 * time.Second

// Generator is the part of offer.Generator the server needs.
type Generator interface {
	Bank() models.BankConfig
	Generate(ctx context.Context, intent models.CreditIntent) (*models.CreditOffer, error)
}

type Server struct {
	generator Generator
	timeout   time.Duration
	logger    logger.Logger
	started   time.Time
	offers    atomic.Int64
	declines  atomic.Int64
}

func New(generator Generator, timeout time.Duration, log logger.Logger) *Server {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Server{
		generator: generator,
		timeout:   timeout,
		logger:    log.WithFields(map[string]interface{}{"bankId": generator.Bank().BankID}),
		started:   time.Now(),
	}
}

// Routes returns the bank agent router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Route("/wfap", func(r chi.Router) {
		r.Post("/assess-credit", s.assessCredit)
		r.Get("/status", s.status)
	})
	return r
}

func (s *Server) assessCredit(w http.ResponseWriter, r *http.Request) {
	bankID := s.generator.Bank().BankID

	var in models.CreditIntent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, models.AssessCreditResponse{
			Status: models.AssessStatusError, BankID: bankID, Error: "invalid intent payload: " + err.Error(),
		})
		return
	}
	if result := intent.Validate(in); !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  models.AssessStatusError,
			"bank_id": bankID,
			"error":   "intent failed validation",
			"errors":  result.Errors,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	o, err := s.generator.Generate(ctx, in)
	if err != nil {
		if errors.Is(err, offer.ErrIdentityVerificationFailed) {
			s.declines.Add(1)
			writeJSON(w, http.StatusUnprocessableEntity, models.AssessCreditResponse{
				Status: models.AssessStatusDeclined, BankID: bankID, Error: err.Error(),
			})
			return
		}
		s.logger.Error("offer generation failed", map[string]interface{}{
			"intentId":  in.IntentID,
			"requestId": middleware.GetReqID(r.Context()),
			"error":     err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, models.AssessCreditResponse{
			Status: models.AssessStatusError, BankID: bankID, Error: err.Error(),
		})
		return
	}

	s.offers.Add(1)
	writeJSON(w, http.StatusOK, models.AssessCreditResponse{Status: models.AssessStatusSuccess, BankID: bankID, Offer: o})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	bank := s.generator.Bank()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bank_id":          bank.BankID,
		"bank_name":        bank.BankName,
		"status":           "online",
		"base_rate":        bank.BaseRate,
		"max_loan_amount":  bank.MaxLoanAmount,
		"offers_generated": s.offers.Load(),
		"offers_declined":  s.declines.Load(),
		"uptime_seconds":   int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
