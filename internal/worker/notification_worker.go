package worker

import (
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/service"
)

// StartNotificationWorker registers notification handlers and starts the
// dispatcher's worker pool.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher *events.AsyncDispatcher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher != nil {
		dispatcher.Start()
	}
}
