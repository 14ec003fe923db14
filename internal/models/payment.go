// Package models defines payment structures for the mock checkout flow.
package models

import "time"

// PaymentRequest is a pending checkout created for a selected gift.
type PaymentRequest struct {
	PaymentID   string    `json:"payment_id"`
	GiftID      string    `json:"gift_id"`
	GiftName    string    `json:"gift_name"`
	Price       string    `json:"price"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentResult is the outcome of processing a payment request.
type PaymentResult struct {
	Success       bool   `json:"success"`
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Status        string `json:"status,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	GiftName      string `json:"gift_name,omitempty"`
	Error         string `json:"error,omitempty"`
}
