package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownTransactionType = errors.New("unknown transaction type")

// TransactionType is persisted as its canonical string form.
type TransactionType string

const (
	Deposit  TransactionType = "Deposit"
	Withdraw TransactionType = "Withdraw"
)

func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case Deposit, Withdraw:
		return TransactionType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) Valid() bool {
	return t == Deposit || t == Withdraw
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("transaction_type must be a string: %w", err)
	}
	parsed, err := ParseTransactionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TransactionType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransactionType, string(t))
	}
	return string(t), nil
}

func (t *TransactionType) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrUnknownTransactionType)
	default:
		return fmt.Errorf("%w: unsupported column type %T", ErrUnknownTransactionType, src)
	}
	parsed, err := ParseTransactionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Transaction is a movement as received from a caller, before the store assigns an id.
type Transaction struct {
	WalletAddress   string          `json:"wallet_address" db:"wallet_address"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount          int64           `json:"amount" db:"amount"`
}

// TransactionRecord is a persisted, immutable ledger row.
type TransactionRecord struct {
	ID              int64           `json:"id" db:"id"`
	WalletAddress   string          `json:"wallet_address" db:"wallet_address"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount          int64           `json:"amount" db:"amount"`
}

// TransactionPayload is one item of a POST body; Amount is a pointer so a missing field is told apart from 0.
type TransactionPayload struct {
	WalletAddress   string          `json:"wallet_address" validate:"required"`
	TransactionType TransactionType `json:"transaction_type" validate:"required,oneof=Deposit Withdraw"`
	Amount          *int64          `json:"amount" validate:"required"`
}

type WalletTransactionsRequest struct {
	Transactions []TransactionPayload `json:"transactions" validate:"required,dive"`
}

// ToTransactions must only be called on a validated request.
func (r WalletTransactionsRequest) ToTransactions() []Transaction {
	txs := make([]Transaction, 0, len(r.Transactions))
	for _, p := range r.Transactions {
		tx := Transaction{WalletAddress: p.WalletAddress, TransactionType: p.TransactionType}
		if p.Amount != nil {
			tx.Amount = *p.Amount
		}
		txs = append(txs, tx)
	}
	return txs
}
