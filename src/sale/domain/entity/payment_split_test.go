package entity

import (
	"testing"

	"kassa/src/shared/domain/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customer(bonus int64) *Customer {
	return &Customer{ID: "c-1", Name: "Dilnoza", BonusBalance: money.FromInt(bonus)}
}

func TestSettle_ExactSplit(t *testing.T) {
	calc := Calculator{Total: money.FromInt(100000), Settings: DefaultSettings()}

	s := calc.Settle(SplitInput{Cash: money.FromInt(60000), Card: money.FromInt(40000)})

	assert.Equal(t, "100000", s.TotalPaid.String())
	assert.True(t, s.Change.IsZero())
	assert.True(t, s.Shortfall.IsZero())
	assert.True(t, s.CanSubmit())
	assert.Equal(t, MethodMixed, s.Method)
}

func TestSettle_Shortfall(t *testing.T) {
	calc := Calculator{Total: money.FromInt(100000), Settings: DefaultSettings()}

	s := calc.Settle(SplitInput{Cash: money.FromInt(50000)})

	assert.Equal(t, "50000", s.TotalPaid.String())
	assert.Equal(t, "50000", s.Shortfall.String())
	assert.False(t, s.CanSubmit())
	assert.ErrorIs(t, s.Validate(), ErrInsufficientPayment)
}

func TestSettle_DebtWithoutCustomer(t *testing.T) {
	calc := Calculator{Total: money.FromInt(100000), Settings: DefaultSettings()}

	s := calc.Settle(SplitInput{Cash: money.FromInt(200000), Debt: money.FromInt(20000)})

	assert.ErrorIs(t, s.Validate(), ErrCustomerRequiredForDebt)
	assert.False(t, s.CanSubmit())
}

func TestSettle_BonusWithoutCustomer(t *testing.T) {
	calc := Calculator{Total: money.FromInt(1000), Settings: DefaultSettings()}

	s := calc.Settle(SplitInput{Cash: money.FromInt(1000), Bonus: money.FromInt(100)})

	assert.True(t, s.BonusSpent.IsZero())
	assert.ErrorIs(t, s.Validate(), ErrCustomerRequiredForBonus)
}

func TestSettle_BonusClampedToBalance(t *testing.T) {
	calc := Calculator{Total: money.FromInt(10000), Customer: customer(300), Settings: DefaultSettings()}

	s := calc.Settle(SplitInput{Cash: money.FromInt(9700), Bonus: money.FromInt(500)})

	assert.Equal(t, "300", s.BonusSpent.String())
	assert.Equal(t, "10000", s.TotalPaid.String())
	assert.True(t, s.CanSubmit())
}

func TestSettle_OverpaymentGivesChange(t *testing.T) {
	calc := Calculator{Total: money.FromInt(27850), Settings: DefaultSettings()}

	s := calc.Settle(SplitInput{Cash: money.FromInt(30000)})

	assert.Equal(t, "2150", s.Change.String())
	assert.Equal(t, MethodCash, s.Method)
	assert.Equal(t, "27850", s.CashContribution().String())
}

func TestSettle_CashContributionWhenChangeExceedsCash(t *testing.T) {
	calc := Calculator{Total: money.FromInt(10000), Settings: DefaultSettings()}

	// card overpays, the cash handed over goes back as change
	s := calc.Settle(SplitInput{Cash: money.FromInt(1000), Card: money.FromInt(12000)})

	assert.Equal(t, "3000", s.Change.String())
	assert.True(t, s.CashContribution().IsZero())
}

func TestSettle_BonusEarned(t *testing.T) {
	settings := DefaultSettings()
	settings.BonusPercentage = decimal.RequireFromString("1.5")
	calc := Calculator{Total: money.FromInt(99999), Customer: customer(1000), Settings: settings}
	in := SplitInput{Cash: money.FromInt(79000), Debt: money.FromInt(20000), Bonus: money.FromInt(999)}

	// (99999 - 20000) * 1.5% = 1199.985
	assert.Equal(t, "1199", calc.Settle(in).BonusEarned.String())

	calc.Settings.BonusBase = BonusBaseNonDebtNonBonus
	// (99999 - 20000 - 999) * 1.5% = 1185
	assert.Equal(t, "1185", calc.Settle(in).BonusEarned.String())

	anonymous := Calculator{Total: money.FromInt(99999), Settings: settings}
	assert.True(t, anonymous.Settle(SplitInput{Cash: money.FromInt(99999)}).BonusEarned.IsZero())
}

func TestSettle_FullDebtEarnsNothing(t *testing.T) {
	calc := Calculator{Total: money.FromInt(5000), Customer: customer(0), Settings: DefaultSettings()}

	s := calc.Settle(SplitInput{Debt: money.FromInt(5000)})

	assert.True(t, s.BonusEarned.IsZero())
	assert.Equal(t, MethodDebt, s.Method)
	assert.NoError(t, s.Validate())
}

func TestFillRemaining(t *testing.T) {
	calc := Calculator{Total: money.FromInt(100000), Customer: customer(300), Settings: DefaultSettings()}
	in := SplitInput{Cash: money.FromInt(50000), Card: money.FromInt(7000), Bonus: money.FromInt(500)}

	out, err := calc.FillRemaining(in, MethodTransfer)
	require.NoError(t, err)
	// bonus counts at its spendable 300
	assert.Equal(t, "42700", out.Transfer.String())
	assert.True(t, calc.Settle(out).CanSubmit())

	out, err = calc.FillRemaining(SplitInput{Cash: money.FromInt(150000)}, MethodCard)
	require.NoError(t, err)
	assert.True(t, out.Card.IsZero())

	out, err = calc.FillRemaining(SplitInput{Cash: money.FromInt(90000), Card: money.FromInt(1)}, MethodCard)
	require.NoError(t, err)
	assert.Equal(t, "10000", out.Card.String())

	out, err = calc.FillRemaining(SplitInput{Cash: money.FromInt(90000)}, MethodBonus)
	require.NoError(t, err)
	assert.Equal(t, "300", out.Bonus.String())

	_, err = calc.FillRemaining(in, MethodMixed)
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("qarz")
	require.NoError(t, err)
	assert.Equal(t, MethodDebt, m)

	_, err = ParsePaymentMethod("cheque")
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
}

func TestNewSaleRequest(t *testing.T) {
	cart := NewCart()
	_, err := cart.Add(product("bread", 4000, UnitCount), money.Units(2))
	require.NoError(t, err)
	c := customer(100)
	calc := Calculator{Total: cart.Total(), Customer: c, Settings: DefaultSettings()}
	s := calc.Settle(SplitInput{Cash: money.FromInt(10000), Bonus: money.FromInt(100)})
	key := uuid.New()

	req, err := NewSaleRequest(key, "cashier-1", nil, cart.Lines(), s, c)
	require.NoError(t, err)

	assert.Equal(t, key, req.IdempotencyKey)
	assert.Equal(t, "c-1", *req.CustomerID)
	assert.Equal(t, "8000", req.Total.String())
	assert.Equal(t, "2100", req.Change.String())
	assert.Equal(t, MethodMixed, req.Method)
	assert.Equal(t, 1, req.TotalItems())
	assert.Equal(t, "7900", req.CashContribution().String())
}

func TestNewSaleRequest_Rejects(t *testing.T) {
	calc := Calculator{Total: money.FromInt(8000), Settings: DefaultSettings()}
	s := calc.Settle(SplitInput{Cash: money.FromInt(8000)})

	_, err := NewSaleRequest(uuid.New(), "cashier-1", nil, nil, s, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	lines := []LineItem{{ProductID: "bread", ProductName: "bread", UnitPrice: money.FromInt(4000), Quantity: money.Units(2), Unit: UnitCount}}
	short := calc.Settle(SplitInput{Cash: money.FromInt(7000)})
	_, err = NewSaleRequest(uuid.New(), "cashier-1", nil, lines, short, nil)
	assert.ErrorIs(t, err, ErrInsufficientPayment)

	// balance dropped after the settlement was computed
	rich := customer(500)
	withBonus := Calculator{Total: money.FromInt(8000), Customer: rich, Settings: DefaultSettings()}.
		Settle(SplitInput{Cash: money.FromInt(7500), Bonus: money.FromInt(500)})
	_, err = NewSaleRequest(uuid.New(), "cashier-1", nil, lines, withBonus, customer(200))
	assert.ErrorIs(t, err, ErrBonusExceedsBalance)
}
