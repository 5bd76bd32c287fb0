package domain

import "github.com/shopspring/decimal"

// AccountSnapshot is the account state supplied by the caller alongside
// each decision. Keeping it an input keeps the risk gate pure.
type AccountSnapshot struct {
	// Equity total account equity in quote currency.
	Equity decimal.Decimal
	// Exposure aggregate notional value of open positions.
	Exposure decimal.Decimal
	// OpenPositions number of currently open positions.
	OpenPositions int
}
