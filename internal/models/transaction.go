package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of a transaction record. A record only ever moves forward:
// PROCESSING -> PROCESSED.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
)

// TransactionIn is the webhook submission payload.
type TransactionIn struct {
	TransactionID      string          `json:"transaction_id" binding:"required"`
	SourceAccount      string          `json:"source_account" binding:"required"`
	DestinationAccount string          `json:"destination_account" binding:"required"`
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	Currency           string          `json:"currency" binding:"required"`
}

// TransactionRecord is the stored form of a transaction. TransactionID is the
// caller-supplied primary key and is immutable. ProcessedAt is nil until the
// record reaches PROCESSED and is set exactly once.
type TransactionRecord struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             Status          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	ProcessedAt        *time.Time      `json:"processed_at"`
}

// NewRecord builds the initial PROCESSING record for a first-seen submission.
func NewRecord(in TransactionIn, now time.Time) TransactionRecord {
	return TransactionRecord{
		TransactionID:      in.TransactionID,
		SourceAccount:      in.SourceAccount,
		DestinationAccount: in.DestinationAccount,
		Amount:             in.Amount,
		Currency:           in.Currency,
		Status:             StatusProcessing,
		CreatedAt:          now,
		ProcessedAt:        nil,
	}
}
