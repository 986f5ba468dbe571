package oracle

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when the oracle cannot serve a price or
// transfer. The oracle performs no retries of its own; retry policy belongs
// to the caller.
var ErrUnavailable = errors.New("oracle unavailable")

// TransferRequest asks the oracle to move value between external accounts.
type TransferRequest struct {
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Reference   string
}

// Receipt confirms a completed transfer.
type Receipt struct {
	ID          string
	Amount      decimal.Decimal
	CompletedAt time.Time
}

// Oracle is the external price/execution collaborator consumed by agents.
// Both calls are fallible and latency-bearing.
type Oracle interface {
	GetPrice(pair string) (decimal.Decimal, error)
	ExecuteTransfer(req TransferRequest) (Receipt, error)
	Name() string
}
