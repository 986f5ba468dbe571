package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a wallet balance mutation.
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxInvestment TransactionType = "investment"
	TxFee        TransactionType = "fee"
)

// Transaction is a single immutable entry in a wallet's transaction log.
type Transaction struct {
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    time.Time       `json:"timestamp"`
	Reference    string          `json:"reference,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
}

// Wallet holds one account's balances and its append-only transaction log.
// Balance and Invested are never negative.
type Wallet struct {
	Balance      decimal.Decimal `json:"balance"`
	Invested     decimal.Decimal `json:"invested"`
	PlatformFee  decimal.Decimal `json:"platformFee"`
	Transactions []Transaction   `json:"transactions"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastActive   time.Time       `json:"lastActive"`
}
