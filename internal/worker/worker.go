package worker

import (
	"github.com/spec-kit/support-desk/internal/service"
)

// Start subscribes the background consumers to the event stream: outbound
// notifications and unread badge cache invalidation. Handlers run inline on
// the publishing goroutine; nothing here opens a connection of its own.
func Start(notifications *service.NotificationService, unread *service.UnreadService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if unread != nil {
		unread.RegisterHandlers()
	}
}
