package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// TabServiceClient is a client for the TabService.
type TabServiceClient struct {
	createTab         *connect.Client[CreateTabRequest, CreateTabResponse]
	listTabs          *connect.Client[ListTabsRequest, ListTabsResponse]
	getTabSummary     *connect.Client[GetTabSummaryRequest, GetTabSummaryResponse]
	addExpense        *connect.Client[AddExpenseRequest, AddExpenseResponse]
	deleteExpense     *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	proposeSettlement *connect.Client[ProposeSettlementRequest, ProposeSettlementResponse]
	cancelSettlement  *connect.Client[CancelSettlementRequest, CancelSettlementResponse]
	applyConfirmation *connect.Client[ApplyConfirmationRequest, ApplyConfirmationResponse]
	reportTransfer    *connect.Client[ReportTransferRequest, ReportTransferResponse]
}

// NewTabServiceClient constructs a client for the TabService at baseURL,
// e.g. http://localhost:8080.
func NewTabServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TabServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &TabServiceClient{
		createTab:         connect.NewClient[CreateTabRequest, CreateTabResponse](httpClient, baseURL+CreateTabProcedure, opts...),
		listTabs:          connect.NewClient[ListTabsRequest, ListTabsResponse](httpClient, baseURL+ListTabsProcedure, opts...),
		getTabSummary:     connect.NewClient[GetTabSummaryRequest, GetTabSummaryResponse](httpClient, baseURL+GetTabSummaryProcedure, opts...),
		addExpense:        connect.NewClient[AddExpenseRequest, AddExpenseResponse](httpClient, baseURL+AddExpenseProcedure, opts...),
		deleteExpense:     connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+DeleteExpenseProcedure, opts...),
		proposeSettlement: connect.NewClient[ProposeSettlementRequest, ProposeSettlementResponse](httpClient, baseURL+ProposeSettlementProcedure, opts...),
		cancelSettlement:  connect.NewClient[CancelSettlementRequest, CancelSettlementResponse](httpClient, baseURL+CancelSettlementProcedure, opts...),
		applyConfirmation: connect.NewClient[ApplyConfirmationRequest, ApplyConfirmationResponse](httpClient, baseURL+ApplyConfirmationProcedure, opts...),
		reportTransfer:    connect.NewClient[ReportTransferRequest, ReportTransferResponse](httpClient, baseURL+ReportTransferProcedure, opts...),
	}
}

func (c *TabServiceClient) CreateTab(ctx context.Context, req *connect.Request[CreateTabRequest]) (*connect.Response[CreateTabResponse], error) {
	return c.createTab.CallUnary(ctx, req)
}

func (c *TabServiceClient) ListTabs(ctx context.Context, req *connect.Request[ListTabsRequest]) (*connect.Response[ListTabsResponse], error) {
	return c.listTabs.CallUnary(ctx, req)
}

func (c *TabServiceClient) GetTabSummary(ctx context.Context, req *connect.Request[GetTabSummaryRequest]) (*connect.Response[GetTabSummaryResponse], error) {
	return c.getTabSummary.CallUnary(ctx, req)
}

func (c *TabServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *TabServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *TabServiceClient) ProposeSettlement(ctx context.Context, req *connect.Request[ProposeSettlementRequest]) (*connect.Response[ProposeSettlementResponse], error) {
	return c.proposeSettlement.CallUnary(ctx, req)
}

func (c *TabServiceClient) CancelSettlement(ctx context.Context, req *connect.Request[CancelSettlementRequest]) (*connect.Response[CancelSettlementResponse], error) {
	return c.cancelSettlement.CallUnary(ctx, req)
}

func (c *TabServiceClient) ApplyConfirmation(ctx context.Context, req *connect.Request[ApplyConfirmationRequest]) (*connect.Response[ApplyConfirmationResponse], error) {
	return c.applyConfirmation.CallUnary(ctx, req)
}

func (c *TabServiceClient) ReportTransfer(ctx context.Context, req *connect.Request[ReportTransferRequest]) (*connect.Response[ReportTransferResponse], error) {
	return c.reportTransfer.CallUnary(ctx, req)
}
