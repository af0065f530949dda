package inbox

import (
	"context"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Insert(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// ListRecent returns the newest messages first.
	ListRecent(ctx context.Context, limit int) ([]*Message, error)
	// ListByPhone returns a contact's full history, oldest first.
	ListByPhone(ctx context.Context, phone string) ([]*Message, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, category string) error
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	List(ctx context.Context) ([]*Category, error)
}
