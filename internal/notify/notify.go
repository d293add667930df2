package notify

import (
	"time"

	"tree-garden/pkg"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventTreeAdded        = "tree_added"
	EventTreeRemoved      = "tree_removed"
	EventTreePriceChanged = "tree_price_changed"
	EventTreePlanted      = "tree_planted"
	EventTreeTransferred  = "tree_transferred"
	EventTreeReturned     = "tree_returned"
	EventRewardClaimed    = "reward_claimed"
	EventPaymentReceived  = "payment_received"
)

// Event is the envelope written to the notification sink. The ledger only
// ever writes events; nothing in the service reads them back.
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	HolderID     int       `json:"holder_id,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	TreeName     string    `json:"tree_name,omitempty"`
	Quantity     int64     `json:"quantity,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	At           time.Time `json:"at"`
}

type Sink interface {
	Emit(event Event)
}

func NewEvent(eventType string) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: eventType,
		At:   time.Now().UTC(),
	}
}

type zapSink struct {
	log pkg.Logger
}

func NewZapSink(log pkg.Logger) Sink {
	return &zapSink{log: log}
}

func (z *zapSink) Emit(event Event) {
	z.log.Info("garden event",
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.Int("holder_id", event.HolderID),
		zap.String("counterparty", event.Counterparty),
		zap.String("tree", event.TreeName),
		zap.Int64("quantity", event.Quantity),
		zap.Int64("amount", event.Amount),
		zap.Time("at", event.At),
	)
}
