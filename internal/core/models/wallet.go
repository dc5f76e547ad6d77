package models

// WalletBalance is derived from a wallet's transactions; wallets have no row of their own.
type WalletBalance struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
}
