package services

import (
	"context"

	"github.com/ruralpay/supplycredit/internal/metrics"
	"github.com/ruralpay/supplycredit/internal/models"
	"go.uber.org/zap"
)

type preferenceReader interface {
	GetPreference(ctx context.Context, accountID int64, event models.EventType) (bool, error)
}

// NotificationService decides whether a raised event is delivered and
// hands rendered mail to the sink. It never returns an error: a failed
// notification must not affect an already committed ledger entry.
type NotificationService struct {
	prefs           preferenceReader
	renderer        *Renderer
	mailer          Mailer
	operatorAddress string
	metrics         *metrics.Collector
	log             *zap.Logger
}

func NewNotificationService(
	prefs preferenceReader,
	renderer *Renderer,
	mailer Mailer,
	operatorAddress string,
	collector *metrics.Collector,
	log *zap.Logger,
) *NotificationService {
	return &NotificationService{
		prefs:           prefs,
		renderer:        renderer,
		mailer:          mailer,
		operatorAddress: operatorAddress,
		metrics:         collector,
		log:             log.Named("notify"),
	}
}

// Dispatch handles every event independently, in order.
func (s *NotificationService) Dispatch(ctx context.Context, events []models.EventType, nc NotificationContext) []models.NotificationResult {
	results := make([]models.NotificationResult, 0, len(events))
	for _, event := range events {
		results = append(results, s.MaybeNotify(ctx, event, nc))
	}
	return results
}

func (s *NotificationService) MaybeNotify(ctx context.Context, event models.EventType, nc NotificationContext) models.NotificationResult {
	result := s.maybeNotify(ctx, event, nc)
	s.metrics.RecordNotification(string(event), string(result.Outcome))
	return result
}

func (s *NotificationService) maybeNotify(ctx context.Context, event models.EventType, nc NotificationContext) models.NotificationResult {
	account := nc.Account
	fields := []zap.Field{
		zap.Int64("account_id", account.ID),
		zap.String("event", string(event)),
		zap.String("reference", nc.Reference),
	}

	recipient, toOperator := "", event == models.EventOperatorThreshold
	if toOperator {
		if s.operatorAddress == "" {
			return suppressed(event, "no operator mailbox configured")
		}
		recipient = s.operatorAddress
	} else {
		if !account.HasEmail() {
			return suppressed(event, "account has no email")
		}
		enabled, err := s.prefs.GetPreference(ctx, account.ID, event)
		if err != nil {
			s.log.Error("notification preference lookup failed", append(fields, zap.Error(err))...)
			return failed(event, "preference lookup failed")
		}
		if !enabled {
			return suppressed(event, "disabled by preference")
		}
		recipient = *account.Email
	}

	msg, err := s.renderer.Render(event, nc, !toOperator)
	if err != nil {
		s.log.Error("notification rendering failed", append(fields, zap.Error(err))...)
		return failed(event, "render failed")
	}
	msg.To = recipient

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error("notification delivery failed", append(fields, zap.Error(err))...)
		return failed(event, "delivery failed")
	}

	s.log.Info("notification sent", fields...)
	return models.NotificationResult{Event: event, Outcome: models.NotificationSent}
}

func suppressed(event models.EventType, reason string) models.NotificationResult {
	return models.NotificationResult{Event: event, Outcome: models.NotificationSuppressed, Reason: reason}
}

func failed(event models.EventType, reason string) models.NotificationResult {
	return models.NotificationResult{Event: event, Outcome: models.NotificationFailed, Reason: reason}
}
