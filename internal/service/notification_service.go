package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
)

// NotificationService turns ticket events into per-user notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Notifier   notify.Notifier
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		logger:     logger,
		now:        orNow(deps.Now),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStateChanged, n.handleStateChanged)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleStateChanged)
	n.dispatcher.Subscribe(events.EventTicketRejected, n.handleStateChanged)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.send(ctx, event, domain.NotifyTicketCreated, "Ticket created",
		fmt.Sprintf("Your ticket %s was registered with priority %s", event.TicketCode, payload.Priority),
		payload.CreatorID)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	err := n.send(ctx, event, domain.NotifyTicketAssigned, "Ticket assigned",
		fmt.Sprintf("Ticket %s was assigned to you", event.TicketCode),
		payload.TechnicianID)
	return errors.Join(err, n.send(ctx, event, domain.NotifyTicketAssigned, "Technician assigned",
		fmt.Sprintf("A technician was assigned to your ticket %s", event.TicketCode),
		payload.CreatorID))
}

func (n *NotificationService) handleStateChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStateChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	kind := domain.NotifyTicketStateChanged
	title := "Ticket updated"
	switch event.Type {
	case events.EventTicketClosed:
		kind, title = domain.NotifyTicketClosed, "Ticket closed"
	case events.EventTicketRejected:
		kind, title = domain.NotifyTicketRejected, "Ticket rejected"
	}
	message := fmt.Sprintf("%s: %s", event.TicketCode, payload.Message)
	if payload.Reason != "" {
		message += " (" + payload.Reason + ")"
	}
	recipients := []string{payload.CreatorID}
	if payload.TechnicianID != nil {
		recipients = append(recipients, *payload.TechnicianID)
	}
	return n.send(ctx, event, kind, title, message, recipients...)
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	var recipients []string
	if !payload.Internal {
		recipients = append(recipients, payload.CreatorID)
	}
	if payload.TechnicianID != nil {
		recipients = append(recipients, *payload.TechnicianID)
	}
	return n.send(ctx, event, domain.NotifyCommentAdded, "New comment",
		fmt.Sprintf("%s: %s", event.TicketCode, payload.BodyPreview), recipients...)
}

// send notifies each distinct recipient other than the acting user, except
// that a creation is always confirmed to its creator.
func (n *NotificationService) send(ctx context.Context, event events.Event, kind domain.NotificationKind, title, message string, recipients ...string) error {
	if n.notifier == nil {
		return nil
	}
	seen := map[string]bool{}
	var errs []error
	for _, userID := range recipients {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		if userID == event.ActorID && kind != domain.NotifyTicketCreated {
			continue
		}
		notification := domain.Notification{
			ID:              uuid.NewString(),
			UserID:          userID,
			Kind:            kind,
			Title:           title,
			Message:         message,
			RelatedTicketID: ptr(event.TicketID),
			CreatedAt:       n.now(),
		}
		if err := n.notifier.Notify(ctx, notification); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("user_id", userID),
				zap.String("kind", string(kind)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
