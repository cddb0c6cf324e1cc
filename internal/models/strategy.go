package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StrategyKind names a split strategy on the wire and in storage.
type StrategyKind string

const (
	StrategyEven   StrategyKind = "even"
	StrategyCustom StrategyKind = "custom"
	StrategyShare  StrategyKind = "share"
)

// SplitStrategy is the rule used to divide a transaction amount.
// The set of implementations is closed: EvenSplit, CustomSplit and ShareSplit.
type SplitStrategy interface {
	Kind() StrategyKind
	sealed()
}

// EvenSplit divides the amount equally among participants.
type EvenSplit struct{}

// CustomSplit assigns an explicit amount to every participant.
type CustomSplit struct {
	Amounts map[string]decimal.Decimal
}

// ShareSplit divides the amount proportionally to share counts.
type ShareSplit struct {
	Shares map[string]int64
}

func (EvenSplit) Kind() StrategyKind   { return StrategyEven }
func (CustomSplit) Kind() StrategyKind { return StrategyCustom }
func (ShareSplit) Kind() StrategyKind  { return StrategyShare }

func (EvenSplit) sealed()   {}
func (CustomSplit) sealed() {}
func (ShareSplit) sealed()  {}

// NewCustomSplit returns a custom strategy. A nil or empty map is rejected.
func NewCustomSplit(amounts map[string]decimal.Decimal) (CustomSplit, error) {
	if len(amounts) == 0 {
		return CustomSplit{}, fmt.Errorf("custom split requires amounts")
	}
	return CustomSplit{Amounts: amounts}, nil
}

// NewShareSplit returns a share strategy. A nil or empty map is rejected.
func NewShareSplit(shares map[string]int64) (ShareSplit, error) {
	if len(shares) == 0 {
		return ShareSplit{}, fmt.Errorf("share split requires share counts")
	}
	return ShareSplit{Shares: shares}, nil
}
