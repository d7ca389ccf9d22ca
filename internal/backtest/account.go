package backtest

import (
	"github.com/shopspring/decimal"
)

// account is the cash ledger of a run. Cash is kept in decimal so that
// thousands of fills do not accumulate float rounding error.
type account struct {
	cash       decimal.Decimal
	commission decimal.Decimal
}

func newAccount(initial float64) *account {
	return &account{cash: decimal.NewFromFloat(initial)}
}

// buy debits qty*price plus commission. It reports false, leaving the
// ledger untouched, when cash is insufficient.
func (a *account) buy(qty, price, rate float64) (fee float64, ok bool) {
	value := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price))
	commission := value.Mul(decimal.NewFromFloat(rate))
	total := value.Add(commission)
	if total.GreaterThan(a.cash) {
		return 0, false
	}
	a.cash = a.cash.Sub(total)
	a.commission = a.commission.Add(commission)
	return commission.InexactFloat64(), true
}

// sell credits qty*price less commission
func (a *account) sell(qty, price, rate float64) (fee float64) {
	value := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price))
	commission := value.Mul(decimal.NewFromFloat(rate))
	a.cash = a.cash.Add(value).Sub(commission)
	a.commission = a.commission.Add(commission)
	return commission.InexactFloat64()
}

// equity marks an open quantity to price
func (a *account) equity(qty, price float64) float64 {
	if qty == 0 {
		return a.cash.InexactFloat64()
	}
	return a.cash.Add(decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price))).InexactFloat64()
}

func (a *account) balance() float64 {
	return a.cash.InexactFloat64()
}

func (a *account) fees() float64 {
	return a.commission.InexactFloat64()
}
