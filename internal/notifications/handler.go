package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dkarpov/taskboard/internal/event"
)

type EmailSender interface {
	SendTaskCreated(msg event.Message) error
}

// TaskCreatedHandler processes one dequeued notification event. A
// returned error keeps the message unacknowledged so the broker
// redelivers it later; delivery is at-least-once, never exactly-once.
type TaskCreatedHandler struct {
	emailService EmailSender
	log          *slog.Logger
}

func NewTaskCreatedHandler(emailService EmailSender, log *slog.Logger) *TaskCreatedHandler {
	return &TaskCreatedHandler{emailService: emailService, log: log}
}

func (h *TaskCreatedHandler) HandleMessage(ctx context.Context, message []byte) error {
	var msg event.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("unmarshal notification event: %w", err)
	}

	if msg.Type != event.TypeTaskCreated {
		h.log.Warn("unknown event type, skipping", slog.String("type", msg.Type))
		return nil
	}

	h.log.Info("received notification event", "email", msg.Email)
	return h.emailService.SendTaskCreated(msg)
}
