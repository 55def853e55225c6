// Package notify tells the requesting company that its offers are ready.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	commonaws "credit-marketplace/internal/common/aws"
	"credit-marketplace/internal/common/config"
	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/models"
)

// Publisher fans a message out to subscribers, e.g. an SNS topic.
type Publisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error)
}

// Mailer sends a plain-text email.
type Mailer interface {
	SendText(ctx context.Context, to, subject, body string) error
}

// OffersReady summarizes one evaluated broadcast.
type OffersReady struct {
	IntentID     string                   `json:"intent_id"`
	CompanyID    string                   `json:"company_id"`
	CompanyName  string                   `json:"company_name"`
	ContactEmail string                   `json:"-"`
	OfferCount   int                      `json:"offer_count"`
	BanksAsked   int                      `json:"banks_asked"`
	Best         *models.OfferEvaluation  `json:"best,omitempty"`
	Ranked       []models.OfferEvaluation `json:"ranked,omitempty"`
}

type Result struct {
	MessageID string `json:"messageId,omitempty"`
	Emailed   bool   `json:"emailed"`
}

type Notifier struct {
	publisher Publisher
	mailer    Mailer
	logger    logger.Logger
}

// NewNotifier accepts nil for either channel.
func NewNotifier(publisher Publisher, mailer Mailer, log logger.Logger) *Notifier {
	return &Notifier{publisher: publisher, mailer: mailer, logger: log}
}

// NewFromConfig wires the SNS and SES channels that are enabled.
func NewFromConfig(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{logger: log}
	if !cfg.SNS.Enabled && !cfg.SES.Enabled {
		return n, nil
	}

	awsCfg, err := commonaws.LoadConfig(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.SNS.Enabled {
		n.publisher = commonaws.NewSNSClient(awsCfg, cfg.SNS.TopicARN)
	}
	if cfg.SES.Enabled {
		n.mailer = commonaws.NewSESClient(awsCfg, cfg.SES.FromEmail)
	}
	return n, nil
}

func (n *Notifier) Enabled() bool {
	return n != nil && (n.publisher != nil || n.mailer != nil)
}

// NotifyOffersReady publishes the summary and, when a contact address is
// known, emails it. It fails only when every attempted channel failed.
func (n *Notifier) NotifyOffersReady(ctx context.Context, msg OffersReady) (Result, error) {
	var result Result
	if !n.Enabled() {
		return result, nil
	}

	subject := fmt.Sprintf("%d credit offers ready for %s", msg.OfferCount, msg.CompanyName)
	var attempted, failed int
	var lastErr error

	if n.publisher != nil {
		attempted++
		payload, err := json.Marshal(msg)
		if err == nil {
			result.MessageID, err = n.publisher.Publish(ctx, subject, string(payload), map[string]string{
				"intent_id":   msg.IntentID,
				"company_id":  msg.CompanyID,
				"offer_count": strconv.Itoa(msg.OfferCount),
			})
		}
		if err != nil {
			failed++
			lastErr = apperrors.NewNotificationSendFailedError("sns", err)
			n.logger.Warn("offers-ready publish failed", map[string]interface{}{"intentId": msg.IntentID, "error": err.Error()})
		}
	}

	if n.mailer != nil && msg.ContactEmail != "" {
		attempted++
		if err := n.mailer.SendText(ctx, msg.ContactEmail, subject, emailBody(msg)); err != nil {
			failed++
			lastErr = apperrors.NewNotificationSendFailedError("ses", err)
			n.logger.Warn("offers-ready email failed", map[string]interface{}{"intentId": msg.IntentID, "error": err.Error()})
		} else {
			result.Emailed = true
		}
	}

	if attempted > 0 && failed == attempted {
		return result, lastErr
	}
	return result, nil
}

func emailBody(msg OffersReady) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Hello %s,", msg.CompanyName))
	parts = append(parts, "")
	if msg.OfferCount == 0 {
		parts = append(parts, fmt.Sprintf("None of the %d banks contacted made an offer for request %s.", msg.BanksAsked, msg.IntentID))
		return strings.Join(parts, "\n")
	}

	parts = append(parts, fmt.Sprintf("%d of %d banks made offers for request %s.", msg.OfferCount, msg.BanksAsked, msg.IntentID))
	for i, ev := range msg.Ranked {
		parts = append(parts, fmt.Sprintf("%d. %s: score %.1f, %s", i+1, ev.BankName, ev.TotalScore, ev.Recommendation))
	}
	if msg.Best != nil {
		parts = append(parts, "")
		parts = append(parts, msg.Best.Reasoning)
	}
	return strings.Join(parts, "\n")
}
