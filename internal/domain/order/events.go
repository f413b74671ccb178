package order

import "time"

const EventOrderPlaced = "OrderPlaced"

// OrderPlaced is published once an order has been written.
type OrderPlaced struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Order     Order     `json:"order"`
	PlacedAt  time.Time `json:"placed_at"`
}

// Name reports the event type, used as the Kafka event_type header.
func (e OrderPlaced) Name() string {
	return e.EventType
}
