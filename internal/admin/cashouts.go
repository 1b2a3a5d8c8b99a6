package admin

import (
	"context"
	"errors"
	"strings"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
	"qbadmin/internal/money"
)

const (
	CashoutRequested  = "REQUESTED"
	CashoutProcessing = "PROCESSING"
	CashoutPaid       = "PAID"
	CashoutFailed     = "FAILED"
	CashoutCancelled  = "CANCELLED"

	MethodUPI  = "UPI"
	MethodBank = "BANK"
)

var CashoutStatuses = []string{CashoutRequested, CashoutProcessing, CashoutPaid, CashoutFailed, CashoutCancelled}

const cashoutsPath = "/admin/finance/cashouts"

type Cashout struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Status        string      `json:"status"`
	Amount        money.Paise `json:"amount"`
	MethodType    string      `json:"methodType"`
	MethodLabel   string      `json:"methodLabel,omitempty"`
	Reference     string      `json:"reference,omitempty"`
	FailureReason string      `json:"failureReason,omitempty"`
	WalletTxnID   string      `json:"walletTxnId,omitempty"`
	CreatedAt     string      `json:"createdAt,omitempty"`
	UpdatedAt     string      `json:"updatedAt,omitempty"`
}

var CashoutFilters = listing.Schema{Fields: []listing.Field{
	{Key: "status", Label: "Status", Choices: CashoutStatuses},
	{Key: "methodType", Label: "Method", Choices: []string{MethodUPI, MethodBank}},
	{Key: "userId", Label: "User"},
	{Key: "from", Label: "From"},
	{Key: "to", Label: "To"},
}}

// CashoutAction names a button on the cashout detail page.
type CashoutAction string

const (
	ActionMarkProcessing CashoutAction = "processing"
	ActionMarkPaid       CashoutAction = "paid"
	ActionMarkFailed     CashoutAction = "failed"
	ActionCancel         CashoutAction = "cancel"
)

// CashoutActions lists every action in display order.
var CashoutActions = []CashoutAction{ActionMarkProcessing, ActionMarkPaid, ActionMarkFailed, ActionCancel}

func (a CashoutAction) Label() string {
	switch a {
	case ActionMarkProcessing:
		return "Mark Processing"
	case ActionMarkPaid:
		return "Mark Paid"
	case ActionMarkFailed:
		return "Mark Failed"
	case ActionCancel:
		return "Cancel"
	}
	return string(a)
}

// ParseCashoutAction accepts the action slug used in routes.
func ParseCashoutAction(s string) (CashoutAction, bool) {
	a := CashoutAction(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range CashoutActions {
		if a == known {
			return a, true
		}
	}
	return "", false
}

// ActionSet is the set of cashout actions a page should offer.
type ActionSet map[CashoutAction]bool

func (s ActionSet) Allows(a CashoutAction) bool { return s[a] }

// List returns the allowed actions in display order.
func (s ActionSet) List() []CashoutAction {
	var out []CashoutAction
	for _, a := range CashoutActions {
		if s[a] {
			out = append(out, a)
		}
	}
	return out
}

// AllowedCashoutActions is advisory: it only decides which buttons are
// enabled. The backend validates every transition, and no function in this
// package consults it before calling the API.
//
//	REQUESTED  -> PROCESSING | CANCELLED
//	PROCESSING -> PAID | FAILED
func AllowedCashoutActions(status string) ActionSet {
	switch strings.ToUpper(status) {
	case CashoutRequested:
		return ActionSet{ActionMarkProcessing: true, ActionCancel: true}
	case CashoutProcessing:
		return ActionSet{ActionMarkPaid: true, ActionMarkFailed: true}
	}
	return ActionSet{}
}

func (s *Service) ListCashouts(ctx context.Context, q gateway.Query) (Page[Cashout], error) {
	var page Page[Cashout]
	err := s.list(ctx, cashoutsPath, q, &page)
	return page, err
}

func (s *Service) GetCashout(ctx context.Context, id string) (Cashout, error) {
	var c Cashout
	if err := requireID("cashout", id); err != nil {
		return c, err
	}
	err := s.get(ctx, resource(cashoutsPath, id), &c)
	return c, err
}

func (s *Service) MarkCashoutProcessing(ctx context.Context, id string) (Cashout, error) {
	return s.cashoutAction(ctx, id, ActionMarkProcessing, struct{}{})
}

// MarkCashoutPaid records the payout reference. Duplicate wallet postings are
// rejected by the backend.
func (s *Service) MarkCashoutPaid(ctx context.Context, id, reference string) (Cashout, error) {
	if strings.TrimSpace(reference) == "" {
		return Cashout{}, errors.New("payout reference required")
	}
	body := struct {
		Reference string `json:"reference"`
	}{reference}
	return s.cashoutAction(ctx, id, ActionMarkPaid, body)
}

func (s *Service) MarkCashoutFailed(ctx context.Context, id, reason string) (Cashout, error) {
	return s.cashoutAction(ctx, id, ActionMarkFailed, reasonBody{Reason: reason})
}

func (s *Service) CancelCashout(ctx context.Context, id, reason string) (Cashout, error) {
	return s.cashoutAction(ctx, id, ActionCancel, reasonBody{Reason: reason})
}

// RunCashoutAction dispatches by action slug; arg is the reference for paid
// and the reason otherwise.
func (s *Service) RunCashoutAction(ctx context.Context, id string, a CashoutAction, arg string) (Cashout, error) {
	switch a {
	case ActionMarkProcessing:
		return s.MarkCashoutProcessing(ctx, id)
	case ActionMarkPaid:
		return s.MarkCashoutPaid(ctx, id, arg)
	case ActionMarkFailed:
		return s.MarkCashoutFailed(ctx, id, arg)
	case ActionCancel:
		return s.CancelCashout(ctx, id, arg)
	}
	return Cashout{}, errors.New("unknown cashout action " + string(a))
}

func (s *Service) cashoutAction(ctx context.Context, id string, a CashoutAction, body any) (Cashout, error) {
	var c Cashout
	if err := requireID("cashout", id); err != nil {
		return c, err
	}
	err := s.post(ctx, resource(cashoutsPath, id, string(a)), body, &c)
	return c, err
}

// ExportCashouts downloads the spreadsheet for the given filters.
func (s *Service) ExportCashouts(ctx context.Context, filters gateway.Query) (gateway.Blob, error) {
	return s.export(ctx, cashoutsPath+"/export", "cashouts", filters)
}
