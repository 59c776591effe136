package ledger

import "time"

// Default configuration values
const (
	DefaultCurrency     = "USD"
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 100 * time.Millisecond
)
