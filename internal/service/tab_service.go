package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tabsettle/internal/auth"
	"github.com/mmynk/tabsettle/internal/engine"
	"github.com/mmynk/tabsettle/internal/middleware"
	"github.com/mmynk/tabsettle/internal/money"
	"github.com/mmynk/tabsettle/internal/pending"
)

// TabService implements the Connect TabService on top of the engine.
type TabService struct {
	engine *engine.Engine
}

// NewTabService creates a new TabService backed by e.
func NewTabService(e *engine.Engine) *TabService {
	return &TabService{engine: e}
}

// Handler returns the path prefix and HTTP handler serving every procedure.
func (s *TabService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateTabProcedure, connect.NewUnaryHandler(CreateTabProcedure, s.CreateTab, opts...))
	mux.Handle(ListTabsProcedure, connect.NewUnaryHandler(ListTabsProcedure, s.ListTabs, opts...))
	mux.Handle(GetTabSummaryProcedure, connect.NewUnaryHandler(GetTabSummaryProcedure, s.GetTabSummary, opts...))
	mux.Handle(AddExpenseProcedure, connect.NewUnaryHandler(AddExpenseProcedure, s.AddExpense, opts...))
	mux.Handle(DeleteExpenseProcedure, connect.NewUnaryHandler(DeleteExpenseProcedure, s.DeleteExpense, opts...))
	mux.Handle(ProposeSettlementProcedure, connect.NewUnaryHandler(ProposeSettlementProcedure, s.ProposeSettlement, opts...))
	mux.Handle(CancelSettlementProcedure, connect.NewUnaryHandler(CancelSettlementProcedure, s.CancelSettlement, opts...))
	mux.Handle(ApplyConfirmationProcedure, connect.NewUnaryHandler(ApplyConfirmationProcedure, s.ApplyConfirmation, opts...))
	mux.Handle(ReportTransferProcedure, connect.NewUnaryHandler(ReportTransferProcedure, s.ReportTransfer, opts...))
	return "/" + TabServiceName + "/", mux
}

// authorize rejects callers whose token does not cover groupID.
func authorize(ctx context.Context, groupID string) error {
	if !middleware.GroupAllowed(ctx, groupID) {
		return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("caller %q may not access group %q", middleware.GetCaller(ctx), groupID))
	}
	return nil
}

// CreateTab creates a new tab in a group.
func (s *TabService) CreateTab(ctx context.Context, req *connect.Request[CreateTabRequest]) (*connect.Response[CreateTabResponse], error) {
	slog.Info("CreateTab request received",
		"group_id", req.Msg.GroupID,
		"name", req.Msg.Name,
		"participants_count", len(req.Msg.Participants),
	)
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	tab, err := s.engine.CreateTab(ctx, engine.CreateTabInput{
		GroupID:      req.Msg.GroupID,
		Name:         req.Msg.Name,
		Currency:     req.Msg.Currency,
		Participants: req.Msg.Participants,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateTabResponse{Tab: tab}), nil
}

// ListTabs lists every tab of a group.
func (s *TabService) ListTabs(ctx context.Context, req *connect.Request[ListTabsRequest]) (*connect.Response[ListTabsResponse], error) {
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}
	tabs, err := s.engine.ListTabs(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Debug("ListTabs successful", "group_id", req.Msg.GroupID, "count", len(tabs))
	return connect.NewResponse(&ListTabsResponse{Tabs: tabs}), nil
}

// GetTabSummary returns a tab's expenses and balances.
func (s *TabService) GetTabSummary(ctx context.Context, req *connect.Request[GetTabSummaryRequest]) (*connect.Response[GetTabSummaryResponse], error) {
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}
	summary, err := s.engine.GetTabSummary(ctx, req.Msg.GroupID, req.Msg.TabID)
	if err != nil {
		return nil, toConnectError(err)
	}

	balances := make([]Balance, len(summary.Balances))
	for i, b := range summary.Balances {
		balances[i] = Balance{MemberID: b.MemberID, Paid: b.Paid, Owed: b.Owed, Net: b.Net}
	}
	return connect.NewResponse(&GetTabSummaryResponse{Tab: summary.Tab, Balances: balances}), nil
}

// AddExpense records an expense on a tab.
func (s *TabService) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	slog.Info("AddExpense request received",
		"group_id", req.Msg.GroupID,
		"tab_id", req.Msg.TabID,
		"payer_id", req.Msg.PayerID,
		"amount", req.Msg.Amount,
	)
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	amount, err := money.Parse(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	var weights []decimal.Decimal
	for _, w := range req.Msg.Weights {
		weight, err := money.Parse(w)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("weight: %w", err))
		}
		weights = append(weights, weight)
	}

	expense, err := s.engine.AddExpense(ctx, engine.AddExpenseInput{
		GroupID:        req.Msg.GroupID,
		TabID:          req.Msg.TabID,
		PayerID:        req.Msg.PayerID,
		Amount:         amount,
		Description:    req.Msg.Description,
		ParticipantIDs: req.Msg.ParticipantIDs,
		Weights:        weights,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AddExpenseResponse{Expense: expense}), nil
}

// DeleteExpense removes an expense from a tab.
func (s *TabService) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}
	if err := s.engine.DeleteExpense(ctx, req.Msg.GroupID, req.Msg.TabID, req.Msg.ExpenseID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

// ProposeSettlement computes and records the transfers that settle a tab.
func (s *TabService) ProposeSettlement(ctx context.Context, req *connect.Request[ProposeSettlementRequest]) (*connect.Response[ProposeSettlementResponse], error) {
	slog.Info("ProposeSettlement request received", "group_id", req.Msg.GroupID, "tab_id", req.Msg.TabID, "asset_id", req.Msg.AssetID)
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	res, err := s.engine.ProposeSettlement(ctx, req.Msg.GroupID, req.Msg.TabID, req.Msg.AssetID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProposeSettlementResponse{
		Outcome:    string(res.Outcome),
		Settlement: res.Settlement,
		Tab:        res.Tab,
	}), nil
}

// CancelSettlement discards a proposed settlement.
func (s *TabService) CancelSettlement(ctx context.Context, req *connect.Request[CancelSettlementRequest]) (*connect.Response[CancelSettlementResponse], error) {
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}
	tab, err := s.engine.CancelSettlement(ctx, req.Msg.GroupID, req.Msg.TabID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CancelSettlementResponse{Tab: tab}), nil
}

// ApplyConfirmation confirms one settlement leg by ID.
func (s *TabService) ApplyConfirmation(ctx context.Context, req *connect.Request[ApplyConfirmationRequest]) (*connect.Response[ApplyConfirmationResponse], error) {
	if err := authorize(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}
	tab, err := s.engine.ApplyConfirmation(ctx, req.Msg.GroupID, req.Msg.TabID, req.Msg.SettlementID, req.Msg.LegID, req.Msg.TxReference)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ApplyConfirmationResponse{Tab: tab}), nil
}

// ReportTransfer matches an observed transfer against pending legs and
// confirms the matching leg. Only callers scoped to all groups may report.
func (s *TabService) ReportTransfer(ctx context.Context, req *connect.Request[ReportTransferRequest]) (*connect.Response[ReportTransferResponse], error) {
	if err := authorize(ctx, auth.AllGroups); err != nil {
		return nil, err
	}

	conf, err := s.engine.HandleTransfer(ctx, pending.Observation{
		Sender:       req.Msg.Sender,
		Recipient:    req.Msg.Recipient,
		AtomicAmount: req.Msg.AtomicAmount,
		AssetID:      req.Msg.AssetID,
		TxReference:  req.Msg.TxReference,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	if conf == nil {
		slog.Debug("Transfer matched no pending leg", "sender", req.Msg.Sender, "tx_reference", req.Msg.TxReference)
		return connect.NewResponse(&ReportTransferResponse{}), nil
	}
	return connect.NewResponse(&ReportTransferResponse{
		Matched:      true,
		GroupID:      conf.Transfer.GroupID,
		TabID:        conf.Transfer.TabID,
		SettlementID: conf.Transfer.SettlementID,
		LegID:        conf.Transfer.LegID,
		Tab:          conf.Tab,
	}), nil
}
