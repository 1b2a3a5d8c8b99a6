package admin

import (
	"context"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
	"qbadmin/internal/money"
)

const (
	FeeDue    = "DUE"
	FeePaid   = "PAID"
	FeeWaived = "WAIVED"
)

const feesPath = "/admin/finance/platform-fees"

// PlatformFee is owed to the platform and kept apart from the wallet ledger.
type PlatformFee struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	TaskID    string      `json:"taskId,omitempty"`
	Amount    money.Paise `json:"amount"`
	Status    string      `json:"status"`
	CreatedAt string      `json:"createdAt,omitempty"`
	SettledAt string      `json:"settledAt,omitempty"`
}

var PlatformFeeFilters = listing.Schema{Fields: []listing.Field{
	{Key: "status", Label: "Status", Choices: []string{FeeDue, FeePaid, FeeWaived}},
	{Key: "userId", Label: "User"},
	{Key: "from", Label: "From"},
	{Key: "to", Label: "To"},
}}

func (s *Service) ListPlatformFees(ctx context.Context, q gateway.Query) (Page[PlatformFee], error) {
	var page Page[PlatformFee]
	err := s.list(ctx, feesPath, q, &page)
	return page, err
}

func (s *Service) ExportPlatformFees(ctx context.Context, filters gateway.Query) (gateway.Blob, error) {
	return s.export(ctx, feesPath+"/export", "platform-fees", filters)
}
