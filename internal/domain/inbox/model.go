package inbox

import (
	"time"

	"github.com/google/uuid"
)

// Message directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Message channels.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelApp      = "app"
	ChannelInternal = "interno"
)

// Delivery outcomes for outbound messages. A reply is always persisted first;
// the delivery status records what happened to the dispatch attempt.
const (
	DeliverySent    = "sent"
	DeliverySkipped = "skipped"
	DeliveryFailed  = "failed"
)

// FilterAll is the sentinel the panel sends when a filter dimension is off.
const FilterAll = "todos"

// Message maps to the messages_center table.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Sender         string    `db:"sender" json:"sender"`
	SenderName     *string   `db:"sender_name" json:"sender_name,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Body           string    `db:"message" json:"message"`
	Direction      string    `db:"direction" json:"direction"`
	Channel        string    `db:"channel" json:"channel"`
	Category       *string   `db:"category" json:"category,omitempty"`
	DeliveryStatus *string   `db:"delivery_status" json:"delivery_status,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ContactKey identifies the conversation a message belongs to: the phone
// number when present, otherwise the sender identifier.
func (m *Message) ContactKey() string {
	if m.Phone != nil && *m.Phone != "" {
		return *m.Phone
	}
	return m.Sender
}

// Category maps to the message_categories table. Messages reference
// categories by name, not by id.
type Category struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Color       *string   `db:"color" json:"color,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
}

// DefaultCategories returns the seed vocabulary. Creation is idempotent, so
// seeding an already-populated table is a no-op.
func DefaultCategories() []*Category {
	mk := func(name, color, description string) *Category {
		return &Category{Name: name, Color: &color, Description: &description}
	}
	return []*Category{
		mk("agendamento", "#2563eb", "Pedidos de marcação, remarcação ou cancelamento de consultas"),
		mk("financeiro", "#16a34a", "Pagamentos, boletos e convênios"),
		mk("resultado", "#9333ea", "Resultados de exames"),
		mk("informações", "#f59e0b", "Dúvidas gerais sobre a clínica"),
		mk("resposta", "#64748b", "Respostas enviadas pela equipe"),
	}
}

// Conversation is one list row: the newest message for a distinct contact.
type Conversation struct {
	ContactKey string   `json:"contact_key"`
	Message    *Message `json:"message"`
}

// Filter narrows the recent message set. Zero values and FilterAll both mean
// "no restriction" for their dimension.
type Filter struct {
	Channel  string
	Category string
	Search   string
}

// ClassifyResult is the outcome of an AI classification. Known reports
// whether the returned label matched the category table; the raw label is
// persisted either way so the stored data reflects exactly what the
// classifier said.
type ClassifyResult struct {
	MessageID uuid.UUID `json:"message_id"`
	Category  string    `json:"category"`
	Known     bool      `json:"known"`
}
