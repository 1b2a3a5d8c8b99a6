package admin

import (
	"context"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
	"qbadmin/internal/money"
)

const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

var LedgerKinds = []string{"TASK_PAYOUT", "CASHOUT", "CASHOUT_REVERSAL", "REFUND", "FEE", "ADJUSTMENT"}

const ledgerPath = "/admin/finance/ledger"

// LedgerTxn is one wallet ledger posting.
type LedgerTxn struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	Kind            string      `json:"kind"`
	Direction       string      `json:"direction"`
	Amount          money.Paise `json:"amount"`
	BalanceAfter    money.Paise `json:"balanceAfter"`
	CashoutID       string      `json:"cashoutId,omitempty"`
	TaskID          string      `json:"taskId,omitempty"`
	PaymentIntentID string      `json:"paymentIntentId,omitempty"`
	Note            string      `json:"note,omitempty"`
	CreatedAt       string      `json:"createdAt,omitempty"`
}

var LedgerFilters = listing.Schema{Fields: []listing.Field{
	{Key: "kind", Label: "Kind", Choices: LedgerKinds},
	{Key: "direction", Label: "Direction", Choices: []string{DirectionCredit, DirectionDebit}},
	{Key: "userId", Label: "User"},
	{Key: "from", Label: "From"},
	{Key: "to", Label: "To"},
}}

func (s *Service) ListLedger(ctx context.Context, q gateway.Query) (Page[LedgerTxn], error) {
	var page Page[LedgerTxn]
	err := s.list(ctx, ledgerPath, q, &page)
	return page, err
}

func (s *Service) GetLedgerTxn(ctx context.Context, id string) (LedgerTxn, error) {
	var txn LedgerTxn
	if err := requireID("ledger transaction", id); err != nil {
		return txn, err
	}
	err := s.get(ctx, resource(ledgerPath, id), &txn)
	return txn, err
}

func (s *Service) ExportLedger(ctx context.Context, filters gateway.Query) (gateway.Blob, error) {
	return s.export(ctx, ledgerPath+"/export", "ledger", filters)
}
