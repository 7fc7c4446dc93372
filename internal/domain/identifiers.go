package domain

// TraderID is the root namespace scope. Every key written by the execution
// database is prefixed by it; it is never itself persisted as a record.
type TraderID string

// AccountID identifies a trading account snapshot.
type AccountID string

// ClientOrderID identifies an order on the client side and keys its event log.
type ClientOrderID string

// VenueOrderID is the identifier assigned by the venue on acceptance.
type VenueOrderID string

// PositionID identifies a position. The zero value means "unassigned": an
// order may be created before the engine knows which position it will fill.
type PositionID string

// StrategyID identifies a strategy for registry membership and scoped indices.
type StrategyID string

// ExecutionID identifies a single fill at the venue.
type ExecutionID string

// Symbol is an instrument identifier such as "AUD/USD.FXCM".
type Symbol string

// IsNull reports whether the position id is unassigned.
func (id PositionID) IsNull() bool { return id == "" }
