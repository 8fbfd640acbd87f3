package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// WishlistItem is one row of the shopping cooling-off list.
type WishlistItem struct {
	Row        int
	Added      civil.Date
	Name       string
	Price      decimal.Decimal
	Desire     string // desire score, free-form "1".."5" with optional note
	ReviewDate string
	Decision   string // e.g. "defer", "considering", "must-buy"
	Note       string
}
