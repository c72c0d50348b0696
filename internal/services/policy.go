package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/ruralpay/supplycredit/internal/models"
)

// OperatorAlertBand is the width of the balance band below an account's
// operator threshold in which the operator alert fires. A balance that
// jumps past the whole band in one step does not alert.
const OperatorAlertBand int64 = 5

// PolicySettings are the ledger policy parameters from the settings table.
type PolicySettings struct {
	// MinBalance is the lowest balance still allowed to start a debit.
	MinBalance int64
	// TransactionAmount is the signed delta booked per debit.
	TransactionAmount int64
}

type settingReader interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// LoadPolicySettings reads both policy settings. There are no defaults:
// a missing or non-integer value is a ConfigurationError.
func LoadPolicySettings(ctx context.Context, settings settingReader) (PolicySettings, error) {
	minBalance, err := readIntSetting(ctx, settings, models.SettingMinBalance)
	if err != nil {
		return PolicySettings{}, err
	}
	amount, err := readIntSetting(ctx, settings, models.SettingTransactionAmount)
	if err != nil {
		return PolicySettings{}, err
	}
	return PolicySettings{MinBalance: minBalance, TransactionAmount: amount}, nil
}

func readIntSetting(ctx context.Context, settings settingReader, key string) (int64, error) {
	raw, ok, err := settings.GetSetting(ctx, key)
	if err != nil {
		return 0, asStoreError("read setting "+key, err)
	}
	if !ok {
		return 0, &ConfigurationError{Key: key, Reason: "is not set"}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Value: raw, Reason: "is not an integer"}
	}
	return v, nil
}

// PreDecision is the result of the pre-check.
type PreDecision struct {
	Allow   bool
	Balance int64
	Limit   int64
}

// EvaluatePre gates the debit path on the last committed balance. The
// debit is blocked once the balance has reached the minimum.
func EvaluatePre(current, minAllowed int64) PreDecision {
	return PreDecision{
		Allow:   current > minAllowed,
		Balance: current,
		Limit:   minAllowed,
	}
}

// EvaluatePost returns the events raised by a balance after a committed
// mutation, in dispatch order. Each event is independent of the others.
func EvaluatePost(balance int64, policy PolicySettings, account *models.Account) []models.EventType {
	var events []models.EventType
	if balance == 0 {
		events = append(events, models.EventZeroBalance)
	}
	if balance <= policy.MinBalance {
		events = append(events, models.EventNegativeBalance)
	}
	if account.OperatorThreshold != nil && inOperatorBand(balance, *account.OperatorThreshold) {
		events = append(events, models.EventOperatorThreshold)
	}
	// Preference gating for transaction mail happens at dispatch time.
	events = append(events, models.EventTransaction)
	return events
}

func inOperatorBand(balance, threshold int64) bool {
	return threshold-OperatorAlertBand < balance && balance <= threshold
}
