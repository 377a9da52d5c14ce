package event

// TypeTaskCreated is the only event type emitted today.
const TypeTaskCreated = "TASK_CREATED"

// Message is the notification wire format. TaskContent is a value
// snapshot taken at creation time, not a reference to the stored task.
type Message struct {
	Type        string `json:"type"`
	Email       string `json:"email"`
	TaskContent string `json:"taskContent"`
}
