package admin

import (
	"context"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
	"qbadmin/internal/money"
)

const (
	PaymentModeApp  = "APP"
	PaymentModeCash = "CASH"
)

// Task lifecycle statuses as reported by the backend.
var TaskStatuses = []string{
	"DRAFT", "OPEN", "ASSIGNED", "IN_PROGRESS", "COMPLETED", "CONFIRMED", "CANCELLED", "DISPUTED", "REFUNDED",
}

const tasksPath = "/admin/tasks"

type Task struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Status       string      `json:"status"`
	PaymentMode  string      `json:"paymentMode"`
	Amount       money.Paise `json:"amount"`
	PosterID     string      `json:"posterId"`
	HelperID     string      `json:"helperId,omitempty"`
	CategoryID   string      `json:"categoryId,omitempty"`
	EscrowID     string      `json:"escrowId,omitempty"`
	EscrowStatus string      `json:"escrowStatus,omitempty"`
	CreatedAt    string      `json:"createdAt,omitempty"`
	UpdatedAt    string      `json:"updatedAt,omitempty"`
}

var TaskFilters = listing.Schema{Fields: []listing.Field{
	{Key: "status", Label: "Status", Choices: TaskStatuses},
	{Key: "paymentMode", Label: "Payment", Choices: []string{PaymentModeApp, PaymentModeCash}},
	{Key: "posterId", Label: "Poster"},
	{Key: "helperId", Label: "Helper"},
	{Key: "q", Label: "Search"},
}}

// Cancellable is a UI hint only; the backend decides.
func (t Task) Cancellable() bool {
	switch t.Status {
	case "DRAFT", "OPEN", "ASSIGNED", "IN_PROGRESS":
		return true
	}
	return false
}

// Refundable is a UI hint only: app-paid tasks with held escrow.
func (t Task) Refundable() bool {
	return t.PaymentMode == PaymentModeApp && t.EscrowStatus == "HOLD" &&
		(t.Status == "CANCELLED" || t.Status == "DISPUTED")
}

func (s *Service) ListTasks(ctx context.Context, q gateway.Query) (Page[Task], error) {
	var page Page[Task]
	err := s.list(ctx, tasksPath, q, &page)
	return page, err
}

func (s *Service) GetTask(ctx context.Context, id string) (Task, error) {
	var t Task
	if err := requireID("task", id); err != nil {
		return t, err
	}
	err := s.get(ctx, resource(tasksPath, id), &t)
	return t, err
}

func (s *Service) CancelTask(ctx context.Context, id, reason string) (Task, error) {
	var t Task
	if err := requireID("task", id); err != nil {
		return t, err
	}
	err := s.post(ctx, resource(tasksPath, id, "cancel"), reasonBody{Reason: reason}, &t)
	return t, err
}

func (s *Service) RefundTask(ctx context.Context, id, reason string) (Task, error) {
	var t Task
	if err := requireID("task", id); err != nil {
		return t, err
	}
	err := s.post(ctx, resource(tasksPath, id, "refund"), reasonBody{Reason: reason}, &t)
	return t, err
}

// SetTaskStatus issues PATCH /admin/tasks/{id}/status.
func (s *Service) SetTaskStatus(ctx context.Context, id, status, reason string) (Task, error) {
	var t Task
	if err := requireID("task", id); err != nil {
		return t, err
	}
	body := struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}{status, reason}
	err := s.patch(ctx, resource(tasksPath, id, "status"), body, &t)
	return t, err
}
