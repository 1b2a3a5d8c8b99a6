package admin

import (
	"context"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
	"qbadmin/internal/money"
)

var PaymentIntentStatuses = []string{"CREATED", "AUTHORIZED", "CAPTURED", "FAILED", "REFUNDED"}

const intentsPath = "/admin/finance/payment-intents"

type PaymentIntent struct {
	ID          string      `json:"id"`
	TaskID      string      `json:"taskId"`
	UserID      string      `json:"userId,omitempty"`
	Status      string      `json:"status"`
	Amount      money.Paise `json:"amount"`
	Provider    string      `json:"provider,omitempty"`
	ProviderRef string      `json:"providerRef,omitempty"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	UpdatedAt   string      `json:"updatedAt,omitempty"`
}

var PaymentIntentFilters = listing.Schema{Fields: []listing.Field{
	{Key: "status", Label: "Status", Choices: PaymentIntentStatuses},
	{Key: "taskId", Label: "Task"},
	{Key: "provider", Label: "Provider"},
}}

func (s *Service) ListPaymentIntents(ctx context.Context, q gateway.Query) (Page[PaymentIntent], error) {
	var page Page[PaymentIntent]
	err := s.list(ctx, intentsPath, q, &page)
	return page, err
}

func (s *Service) GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error) {
	var pi PaymentIntent
	if err := requireID("payment intent", id); err != nil {
		return pi, err
	}
	err := s.get(ctx, resource(intentsPath, id), &pi)
	return pi, err
}
