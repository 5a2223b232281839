package notifications

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// NotificationDTO is the transport shape of a guardian notification.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	StudentID uuid.UUID              `json:"student_id"`
	Kind      enums.NotificationKind `json:"kind"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ListRequest pages a guardian's notifications.
type ListRequest struct {
	UnreadOnly bool
	Limit      int
	Cursor     string
}

// ListResponse is a cursor page of notifications.
type ListResponse struct {
	Notifications []*NotificationDTO `json:"notifications"`
	NextCursor    string             `json:"next_cursor,omitempty"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(n *models.Notification) *NotificationDTO {
	if n == nil {
		return nil
	}
	return &NotificationDTO{
		ID:        n.ID,
		StudentID: n.StudentID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func fromModels(rows []models.Notification) []*NotificationDTO {
	out := make([]*NotificationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
