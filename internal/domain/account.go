package domain

import (
	"github.com/shopspring/decimal"
)

// Account is one named cash pool from the asset sheet.
type Account struct {
	Row   int // 1-based sheet row
	Name  string
	Value decimal.Decimal
}

// AssetSheet is the parsed asset overview: individual accounts plus the
// derived total row, kept separate so charts and sums never double-count.
type AssetSheet struct {
	Accounts []Account
	Total    decimal.Decimal
	HasTotal bool
}

// Find returns the account with the given name, matching exactly.
// Exactly one row per account name is assumed to exist.
func (s AssetSheet) Find(name string) (Account, bool) {
	for _, a := range s.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}

// Liquid sums the accounts whose names appear in the given list. Names
// that do not resolve contribute nothing.
func (s AssetSheet) Liquid(names []string) decimal.Decimal {
	sum := decimal.Zero
	for _, n := range names {
		if a, ok := s.Find(n); ok {
			sum = sum.Add(a.Value)
		}
	}
	return sum
}
