package console

import (
	"context"
	"net/url"

	"github.com/go-chi/chi/v5"

	"qbadmin/internal/admin"
	"qbadmin/internal/authz"
	"qbadmin/internal/money"
)

func (s *Server) cashoutList() listSpec[admin.Cashout] {
	return listSpec[admin.Cashout]{
		Title:  "Cashouts",
		Path:   "/finance/cashouts",
		Schema: admin.CashoutFilters,
		Fetch:  s.app.Admin.ListCashouts,
		Export: s.app.Admin.ExportCashouts,
		Link:   func(c admin.Cashout) string { return "/finance/cashouts/" + url.PathEscape(c.ID) },
		Columns: []column[admin.Cashout]{
			{"ID", func(c admin.Cashout) string { return c.ID }},
			{"User", func(c admin.Cashout) string { return c.UserID }},
			{"Status", func(c admin.Cashout) string { return c.Status }},
			{"Method", func(c admin.Cashout) string { return c.MethodType }},
			{"Amount", func(c admin.Cashout) string { return money.Format(c.Amount) }},
			{"Requested", func(c admin.Cashout) string { return orDash(c.CreatedAt) }},
		},
	}
}

// cashoutActionInputs names the form field each action sends.
func cashoutActionInputs(a admin.CashoutAction) []inputView {
	switch a {
	case admin.ActionMarkPaid:
		return []inputView{{Name: "reference", Label: "Payout reference", Required: true}}
	case admin.ActionMarkFailed, admin.ActionCancel:
		return []inputView{reasonInput(true)}
	}
	return nil
}

func (s *Server) cashoutDetail() detailSpec {
	return detailSpec{
		Title: "Cashout",
		Back:  "/finance/cashouts",
		Load: func(ctx context.Context, id string, caps authz.Capabilities) (detailView, error) {
			c, err := s.app.Admin.GetCashout(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			base := "/finance/cashouts/" + url.PathEscape(c.ID)
			v := detailView{Fields: []fieldView{
				{Label: "ID", Value: c.ID},
				{Label: "User", Value: c.UserID, Link: userLink(c.UserID)},
				{Label: "Status", Value: c.Status},
				{Label: "Amount", Value: money.Format(c.Amount)},
				{Label: "Method", Value: c.MethodType},
				{Label: "Destination", Value: orDash(c.MethodLabel)},
				{Label: "Reference", Value: orDash(c.Reference)},
				{Label: "Failure reason", Value: orDash(c.FailureReason)},
				{Label: "Wallet txn", Value: orDash(c.WalletTxnID), Link: ledgerLink(c.WalletTxnID)},
				{Label: "Requested", Value: orDash(c.CreatedAt)},
				{Label: "Updated", Value: orDash(c.UpdatedAt)},
			}}
			allowed := admin.AllowedCashoutActions(c.Status)
			manage := caps.Has(authz.FinanceManage)
			for _, a := range admin.CashoutActions {
				v.Actions = append(v.Actions, actionView{
					Label:   a.Label(),
					URL:     base + "/" + string(a),
					Enabled: manage && allowed.Allows(a),
					Inputs:  cashoutActionInputs(a),
				})
			}
			return v, nil
		},
	}
}

func (s *Server) ledgerList() listSpec[admin.LedgerTxn] {
	return listSpec[admin.LedgerTxn]{
		Title:  "Wallet ledger",
		Path:   "/finance/ledger",
		Schema: admin.LedgerFilters,
		Fetch:  s.app.Admin.ListLedger,
		Export: s.app.Admin.ExportLedger,
		Link:   func(t admin.LedgerTxn) string { return ledgerLink(t.ID) },
		Columns: []column[admin.LedgerTxn]{
			{"ID", func(t admin.LedgerTxn) string { return t.ID }},
			{"User", func(t admin.LedgerTxn) string { return t.UserID }},
			{"Kind", func(t admin.LedgerTxn) string { return t.Kind }},
			{"Direction", func(t admin.LedgerTxn) string { return t.Direction }},
			{"Amount", func(t admin.LedgerTxn) string { return money.Format(t.Amount) }},
			{"Balance after", func(t admin.LedgerTxn) string { return money.Format(t.BalanceAfter) }},
			{"At", func(t admin.LedgerTxn) string { return orDash(t.CreatedAt) }},
		},
	}
}

func (s *Server) ledgerDetail() detailSpec {
	return detailSpec{
		Title: "Ledger transaction",
		Back:  "/finance/ledger",
		Load: func(ctx context.Context, id string, _ authz.Capabilities) (detailView, error) {
			t, err := s.app.Admin.GetLedgerTxn(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			return detailView{Fields: []fieldView{
				{Label: "ID", Value: t.ID},
				{Label: "User", Value: t.UserID, Link: userLink(t.UserID)},
				{Label: "Kind", Value: t.Kind},
				{Label: "Direction", Value: t.Direction},
				{Label: "Amount", Value: money.Format(t.Amount)},
				{Label: "Balance after", Value: money.Format(t.BalanceAfter)},
				{Label: "Cashout", Value: orDash(t.CashoutID), Link: cashoutLink(t.CashoutID)},
				{Label: "Task", Value: orDash(t.TaskID), Link: taskLink(t.TaskID)},
				{Label: "Payment intent", Value: orDash(t.PaymentIntentID), Link: intentLink(t.PaymentIntentID)},
				{Label: "Note", Value: orDash(t.Note)},
				{Label: "At", Value: orDash(t.CreatedAt)},
			}}, nil
		},
	}
}

func (s *Server) intentList() listSpec[admin.PaymentIntent] {
	return listSpec[admin.PaymentIntent]{
		Title:  "Payment intents",
		Path:   "/finance/payment-intents",
		Schema: admin.PaymentIntentFilters,
		Fetch:  s.app.Admin.ListPaymentIntents,
		Link:   func(p admin.PaymentIntent) string { return intentLink(p.ID) },
		Columns: []column[admin.PaymentIntent]{
			{"ID", func(p admin.PaymentIntent) string { return p.ID }},
			{"Task", func(p admin.PaymentIntent) string { return p.TaskID }},
			{"Status", func(p admin.PaymentIntent) string { return p.Status }},
			{"Amount", func(p admin.PaymentIntent) string { return money.Format(p.Amount) }},
			{"Provider", func(p admin.PaymentIntent) string { return orDash(p.Provider) }},
			{"Created", func(p admin.PaymentIntent) string { return orDash(p.CreatedAt) }},
		},
	}
}

func (s *Server) intentDetail() detailSpec {
	return detailSpec{
		Title: "Payment intent",
		Back:  "/finance/payment-intents",
		Load: func(ctx context.Context, id string, _ authz.Capabilities) (detailView, error) {
			p, err := s.app.Admin.GetPaymentIntent(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			return detailView{Fields: []fieldView{
				{Label: "ID", Value: p.ID},
				{Label: "Task", Value: p.TaskID, Link: taskLink(p.TaskID)},
				{Label: "User", Value: orDash(p.UserID), Link: userLink(p.UserID)},
				{Label: "Status", Value: p.Status},
				{Label: "Amount", Value: money.Format(p.Amount)},
				{Label: "Provider", Value: orDash(p.Provider)},
				{Label: "Provider ref", Value: orDash(p.ProviderRef)},
				{Label: "Created", Value: orDash(p.CreatedAt)},
				{Label: "Updated", Value: orDash(p.UpdatedAt)},
			}}, nil
		},
	}
}

func (s *Server) feeList() listSpec[admin.PlatformFee] {
	return listSpec[admin.PlatformFee]{
		Title:  "Platform fees",
		Path:   "/finance/platform-fees",
		Schema: admin.PlatformFeeFilters,
		Fetch:  s.app.Admin.ListPlatformFees,
		Export: s.app.Admin.ExportPlatformFees,
		Columns: []column[admin.PlatformFee]{
			{"ID", func(f admin.PlatformFee) string { return f.ID }},
			{"User", func(f admin.PlatformFee) string { return f.UserID }},
			{"Task", func(f admin.PlatformFee) string { return orDash(f.TaskID) }},
			{"Amount", func(f admin.PlatformFee) string { return money.Format(f.Amount) }},
			{"Status", func(f admin.PlatformFee) string { return f.Status }},
			{"Created", func(f admin.PlatformFee) string { return orDash(f.CreatedAt) }},
			{"Settled", func(f admin.PlatformFee) string { return orDash(f.SettledAt) }},
		},
	}
}

func (s *Server) routeFinance(r chi.Router) {
	cashouts, cashout := s.cashoutList(), s.cashoutDetail()
	ledger, txn := s.ledgerList(), s.ledgerDetail()
	intents, intent := s.intentList(), s.intentDetail()
	fees := s.feeList()
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.FinanceView, authz.FinanceManage))
		r.Get("/finance/cashouts", serveList(s, cashouts))
		r.Get("/finance/cashouts/export", serveExport(s, cashouts))
		r.Get("/finance/cashouts/{id}", s.serveDetail(cashout))
		r.Get("/finance/ledger", serveList(s, ledger))
		r.Get("/finance/ledger/export", serveExport(s, ledger))
		r.Get("/finance/ledger/{id}", s.serveDetail(txn))
		r.Get("/finance/payment-intents", serveList(s, intents))
		r.Get("/finance/payment-intents/{id}", s.serveDetail(intent))
		r.Get("/finance/platform-fees", serveList(s, fees))
		r.Get("/finance/platform-fees/export", serveExport(s, fees))

		r.With(s.RequirePermission(authz.FinanceManage)).Post("/finance/cashouts/{id}/{action}",
			s.detailAction(cashout, func(ctx context.Context, id string, form url.Values) (string, error) {
				return "", s.runCashoutAction(ctx, id, form)
			}))
	})
}

func (s *Server) runCashoutAction(ctx context.Context, id string, form url.Values) error {
	a, ok := admin.ParseCashoutAction(chi.URLParamFromCtx(ctx, "action"))
	if !ok {
		return errUnknownAction
	}
	arg := form.Get("reason")
	if a == admin.ActionMarkPaid {
		arg = form.Get("reference")
	}
	_, err := s.app.Admin.RunCashoutAction(ctx, id, a, arg)
	return err
}

func ledgerLink(id string) string {
	if id == "" {
		return ""
	}
	return "/finance/ledger/" + url.PathEscape(id)
}

func cashoutLink(id string) string {
	if id == "" {
		return ""
	}
	return "/finance/cashouts/" + url.PathEscape(id)
}

func intentLink(id string) string {
	if id == "" {
		return ""
	}
	return "/finance/payment-intents/" + url.PathEscape(id)
}
