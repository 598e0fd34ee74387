package audit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/travel-golobe/service-booking/internal/application"
)

func fromHistoryDocument(d historyDocument) (application.AuditEntry, error) {
	bookingID, err := uuid.Parse(d.BookingID)
	if err != nil {
		return application.AuditEntry{}, fmt.Errorf("invalid booking_id %q in history: %w", d.BookingID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return application.AuditEntry{}, fmt.Errorf("invalid user_id %q in history: %w", d.UserID, err)
	}

	entry := application.AuditEntry{
		BookingID:     bookingID,
		BookingNumber: d.BookingNumber,
		UserID:        userID,
		Kind:          d.Kind,
		Action:        application.AuditAction(d.Action),
		FromStatus:    d.FromStatus,
		ToStatus:      d.ToStatus,
		TotalAmount:   d.TotalAmount,
		Currency:      d.Currency,
		OccurredAt:    d.OccurredAt,
	}
	if d.ActorID != "" {
		actor, err := uuid.Parse(d.ActorID)
		if err != nil {
			return application.AuditEntry{}, fmt.Errorf("invalid actor_id %q in history: %w", d.ActorID, err)
		}
		entry.ActorID = &actor
	}
	return entry, nil
}
