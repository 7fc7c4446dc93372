package domain

import "github.com/shopspring/decimal"

// Account is the latest-snapshot view of a trading account. Unlike orders
// and positions it is not event-sourced in the store: only the most recent
// AccountState is persisted, with upsert semantics.
type Account struct {
	ID              AccountID
	Currency        string
	Balance         decimal.Decimal
	MarginBalance   decimal.Decimal
	MarginAvailable decimal.Decimal

	events []*AccountState
}

// NewAccount builds an account from a state event.
func NewAccount(state *AccountState) *Account {
	a := &Account{ID: state.AccountID}
	a.Apply(state)
	return a
}

// Apply overwrites the account with the given state.
func (a *Account) Apply(state *AccountState) {
	a.Currency = state.Currency
	a.Balance = state.Balance
	a.MarginBalance = state.MarginBalance
	a.MarginAvailable = state.MarginAvailable
	a.events = append(a.events, state)
}

// LastEvent returns the state event that produced the current snapshot.
func (a *Account) LastEvent() *AccountState {
	return a.events[len(a.events)-1]
}

// EventCount returns the number of state events applied in this process.
func (a *Account) EventCount() int { return len(a.events) }
