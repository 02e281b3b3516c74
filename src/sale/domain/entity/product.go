package entity

import (
	"strings"

	"kassa/src/shared/domain/money"

	"github.com/shopspring/decimal"
)

// UnitKind tells how a product is measured at the register.
type UnitKind string

const (
	UnitCount  UnitKind = "count"
	UnitWeight UnitKind = "weight"
	UnitVolume UnitKind = "volume"
)

// ParseUnitKind accepts the canonical names and the unit labels used on
// shelf tags (dona, kg, litr).
func ParseUnitKind(s string) (UnitKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count", "dona", "pcs", "":
		return UnitCount, nil
	case "weight", "kg", "g":
		return UnitWeight, nil
	case "volume", "litr", "l":
		return UnitVolume, nil
	default:
		return "", ErrUnknownUnit
	}
}

// Measured reports whether quantities of this kind are continuous.
func (u UnitKind) Measured() bool {
	return u == UnitWeight || u == UnitVolume
}

// Product is the catalog's view of an item at the moment it is read.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice money.Money     `json:"unit_price"`
	Unit      UnitKind        `json:"unit"`
	Stock     decimal.Decimal `json:"stock"` // hint only, the backend decides
	Favorite  bool            `json:"is_favorite"`
}

// Customer is the directory's view of a buyer.
type Customer struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BonusBalance money.Money     `json:"bonus_balance"`
	DebtBalance  decimal.Decimal `json:"debt_balance"` // positive means the customer owes the store
	TelegramID   int64           `json:"telegram_id,omitempty"`
}

// BonusBase selects which part of the sale accrues loyalty points.
type BonusBase string

const (
	// BonusBaseNonDebt accrues on total minus the credited part.
	BonusBaseNonDebt BonusBase = "non_debt"
	// BonusBaseNonDebtNonBonus also excludes the part paid with points.
	BonusBaseNonDebtNonBonus BonusBase = "non_debt_non_bonus"
)

// Settings is the subset of store settings the register reads.
type Settings struct {
	BonusPercentage   decimal.Decimal `json:"bonus_percentage"`
	BonusBase         BonusBase       `json:"bonus_base"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	DebtDueDays       int             `json:"debt_due_days"`
}

func DefaultSettings() Settings {
	return Settings{
		BonusPercentage:   decimal.NewFromInt(1),
		BonusBase:         BonusBaseNonDebt,
		LowStockThreshold: decimal.NewFromInt(5),
		DebtDueDays:       30,
	}
}
