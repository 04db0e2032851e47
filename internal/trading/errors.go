package trading

import "errors"

// Approval errors returned by the pending-trade store. Callers translate
// these into rejected operations, never crashes.
var (
	// ErrTradeNotFound means no trade exists with the given ID
	ErrTradeNotFound = errors.New("pending trade not found")

	// ErrTradeNotPending means the trade already reached a terminal state
	ErrTradeNotPending = errors.New("pending trade already decided")

	// ErrTradeExpired means the trade is past its expiry time. Returned
	// even when the background sweep has not marked it yet.
	ErrTradeExpired = errors.New("pending trade expired")

	// ErrCooldownActive means the per-symbol cooldown has not elapsed.
	// Returned by the executor before any venue interaction.
	ErrCooldownActive = errors.New("symbol cooldown active")
)
