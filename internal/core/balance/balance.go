// Package balance folds a wallet's transaction history into its signed balance.
package balance

import (
	"errors"
	"math/bits"

	"github.com/Nzyazin/ledger/internal/core/models"
)

var ErrOverflow = errors.New("balance overflows int64")

// Compute adds deposits and subtracts withdrawals, starting from zero.
// Records with a tag outside {Deposit, Withdraw} contribute nothing.
// Intermediate sums are kept in 128 bits, so only a final balance outside int64 is an overflow.
func Compute(records []models.TransactionRecord) (int64, error) {
	var acc int128
	for _, rec := range records {
		switch rec.TransactionType {
		case models.Deposit:
			acc = acc.add(rec.Amount)
		case models.Withdraw:
			acc = acc.sub(rec.Amount)
		}
	}
	return acc.int64()
}

// int128 is a two's complement accumulator; 2^64 records would be needed to wrap it.
type int128 struct {
	hi, lo uint64
}

func signWord(v int64) uint64 {
	if v < 0 {
		return ^uint64(0)
	}
	return 0
}

func (a int128) add(v int64) int128 {
	lo, carry := bits.Add64(a.lo, uint64(v), 0)
	hi, _ := bits.Add64(a.hi, signWord(v), carry)
	return int128{hi: hi, lo: lo}
}

func (a int128) sub(v int64) int128 {
	lo, borrow := bits.Sub64(a.lo, uint64(v), 0)
	hi, _ := bits.Sub64(a.hi, signWord(v), borrow)
	return int128{hi: hi, lo: lo}
}

func (a int128) int64() (int64, error) {
	if a.hi != signWord(int64(a.lo)) {
		return 0, ErrOverflow
	}
	return int64(a.lo), nil
}
