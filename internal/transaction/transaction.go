// Package transaction holds the wire-level request/response types for a
// charge attempt and the validation rules applied at the HTTP boundary.
package transaction

import (
	"encoding/json"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Currency is a closed set of supported ISO-4217-style codes.
type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
	MXN Currency = "MXN"
)

var supportedCurrencies = map[Currency]struct{}{BRL: {}, USD: {}, MXN: {}}

var (
	idPattern   = regexp.MustCompile(`^[\w\-]+$`)
	cardPattern = regexp.MustCompile(`^\d{4}$`)
)

const maxMetadataBytes = 1024

// Request is the immutable transaction request received from the caller.
// Once constructed it is never mutated by the engine.
type Request struct {
	TransactionID string            `json:"transaction_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      Currency          `json:"currency"`
	MerchantID    string            `json:"merchant_id"`
	CardLastFour  string            `json:"card_last_four"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Validate enforces the request-malformed checks: these never reach
// the engine and are surfaced by the router as HTTP 4xx.
func (r Request) Validate() error {
	return validation.Errors{
		"transaction_id": validation.Validate(r.TransactionID,
			validation.Required, validation.Length(1, 64), validation.Match(idPattern)),
		"amount": validation.Validate(r.Amount,
			validation.By(positiveAmount), validation.By(boundedAmount)),
		"currency": validation.Validate(r.Currency,
			validation.Required, validation.By(knownCurrency)),
		"merchant_id": validation.Validate(r.MerchantID,
			validation.Required, validation.Length(1, 64), validation.Match(idPattern)),
		"card_last_four": validation.Validate(r.CardLastFour,
			validation.Required, validation.Match(cardPattern)),
		"metadata": validation.Validate(r.Metadata, validation.By(boundedMetadata)),
	}.Filter()
}

func positiveAmount(value interface{}) error {
	amount, _ := value.(decimal.Decimal)
	if !amount.IsPositive() {
		return validation.NewError("validation_amount_non_positive", "amount must be greater than zero")
	}
	return nil
}

func boundedAmount(value interface{}) error {
	amount, _ := value.(decimal.Decimal)
	if amount.GreaterThan(decimal.NewFromInt(1_000_000)) {
		return validation.NewError("validation_amount_too_large", "amount must not exceed 1,000,000")
	}
	return nil
}

func knownCurrency(value interface{}) error {
	currency, _ := value.(Currency)
	if _, ok := supportedCurrencies[currency]; !ok {
		return validation.NewError("validation_unsupported_currency", "unsupported currency")
	}
	return nil
}

func boundedMetadata(value interface{}) error {
	metadata, _ := value.(map[string]string)
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return validation.NewError("validation_invalid_metadata", "metadata must be JSON-serializable")
	}
	if len(encoded) > maxMetadataBytes {
		return validation.NewError("validation_metadata_too_large", "metadata must not exceed 1 KB")
	}
	return nil
}

// Response is the wire-level outcome of a processed transaction, matching
// the fixed wire schema.
type Response struct {
	TransactionID   string     `json:"transaction_id"`
	Status          string     `json:"status"` // "approved" | "declined"
	ProcessorUsed   *string    `json:"processor_used"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	Fee             *string    `json:"fee"`
	FeeRate         *float64   `json:"fee_rate"`
	DeclineReason   *string    `json:"decline_reason"`
	DeclineType     *string    `json:"decline_type"`
	Attempts        int        `json:"attempts"`
	ProcessorsTried []string   `json:"processors_tried"`
	LatencyMS       float64    `json:"latency_ms"`
	ProcessedAt     time.Time  `json:"processed_at"`
}
