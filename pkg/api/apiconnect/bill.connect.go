// Package apiconnect wires the receiptsplit.v1 services to Connect.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/pkg/api"
)

const (
	// BillServiceName is the fully-qualified name of the BillService service.
	BillServiceName = "receiptsplit.v1.BillService"
)

const (
	BillServiceCreateSessionProcedure     = "/receiptsplit.v1.BillService/CreateSession"
	BillServiceExtractReceiptProcedure    = "/receiptsplit.v1.BillService/ExtractReceipt"
	BillServiceLoadItemsProcedure         = "/receiptsplit.v1.BillService/LoadItems"
	BillServiceAddItemProcedure           = "/receiptsplit.v1.BillService/AddItem"
	BillServiceUpdateItemProcedure        = "/receiptsplit.v1.BillService/UpdateItem"
	BillServiceRemoveItemProcedure        = "/receiptsplit.v1.BillService/RemoveItem"
	BillServiceAddParticipantProcedure    = "/receiptsplit.v1.BillService/AddParticipant"
	BillServiceRenameParticipantProcedure = "/receiptsplit.v1.BillService/RenameParticipant"
	BillServiceRemoveParticipantProcedure = "/receiptsplit.v1.BillService/RemoveParticipant"
	BillServiceToggleAssignmentProcedure  = "/receiptsplit.v1.BillService/ToggleAssignment"
	BillServiceGetSessionProcedure        = "/receiptsplit.v1.BillService/GetSession"
	BillServiceFinalizeBillProcedure      = "/receiptsplit.v1.BillService/FinalizeBill"
	BillServiceGetBillProcedure           = "/receiptsplit.v1.BillService/GetBill"
	BillServiceListBillsProcedure         = "/receiptsplit.v1.BillService/ListBills"
	BillServiceDeleteBillProcedure        = "/receiptsplit.v1.BillService/DeleteBill"
)

// BillServiceHandler is implemented by the server.
type BillServiceHandler interface {
	CreateSession(context.Context, *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionResponse], error)
	ExtractReceipt(context.Context, *connect.Request[api.ExtractReceiptRequest]) (*connect.Response[api.SessionResponse], error)
	LoadItems(context.Context, *connect.Request[api.LoadItemsRequest]) (*connect.Response[api.SessionResponse], error)
	AddItem(context.Context, *connect.Request[api.AddItemRequest]) (*connect.Response[api.SessionResponse], error)
	UpdateItem(context.Context, *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.SessionResponse], error)
	RemoveItem(context.Context, *connect.Request[api.RemoveItemRequest]) (*connect.Response[api.SessionResponse], error)
	AddParticipant(context.Context, *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.SessionResponse], error)
	RenameParticipant(context.Context, *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.SessionResponse], error)
	RemoveParticipant(context.Context, *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.SessionResponse], error)
	ToggleAssignment(context.Context, *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.SessionResponse], error)
	GetSession(context.Context, *connect.Request[api.GetSessionRequest]) (*connect.Response[api.SessionResponse], error)
	FinalizeBill(context.Context, *connect.Request[api.FinalizeBillRequest]) (*connect.Response[api.FinalizeBillResponse], error)
	GetBill(context.Context, *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error)
	ListBills(context.Context, *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error)
	DeleteBill(context.Context, *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error)
}

// NewBillServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewBillServiceHandler(svc BillServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	read := append(opts[:len(opts):len(opts)], connect.WithIdempotency(connect.IdempotencyNoSideEffects))

	return routes(BillServiceName, map[string]http.Handler{
		BillServiceCreateSessionProcedure:     connect.NewUnaryHandler(BillServiceCreateSessionProcedure, svc.CreateSession, opts...),
		BillServiceExtractReceiptProcedure:    connect.NewUnaryHandler(BillServiceExtractReceiptProcedure, svc.ExtractReceipt, opts...),
		BillServiceLoadItemsProcedure:         connect.NewUnaryHandler(BillServiceLoadItemsProcedure, svc.LoadItems, opts...),
		BillServiceAddItemProcedure:           connect.NewUnaryHandler(BillServiceAddItemProcedure, svc.AddItem, opts...),
		BillServiceUpdateItemProcedure:        connect.NewUnaryHandler(BillServiceUpdateItemProcedure, svc.UpdateItem, opts...),
		BillServiceRemoveItemProcedure:        connect.NewUnaryHandler(BillServiceRemoveItemProcedure, svc.RemoveItem, opts...),
		BillServiceAddParticipantProcedure:    connect.NewUnaryHandler(BillServiceAddParticipantProcedure, svc.AddParticipant, opts...),
		BillServiceRenameParticipantProcedure: connect.NewUnaryHandler(BillServiceRenameParticipantProcedure, svc.RenameParticipant, opts...),
		BillServiceRemoveParticipantProcedure: connect.NewUnaryHandler(BillServiceRemoveParticipantProcedure, svc.RemoveParticipant, opts...),
		BillServiceToggleAssignmentProcedure:  connect.NewUnaryHandler(BillServiceToggleAssignmentProcedure, svc.ToggleAssignment, opts...),
		BillServiceGetSessionProcedure:        connect.NewUnaryHandler(BillServiceGetSessionProcedure, svc.GetSession, read...),
		BillServiceFinalizeBillProcedure:      connect.NewUnaryHandler(BillServiceFinalizeBillProcedure, svc.FinalizeBill, opts...),
		BillServiceGetBillProcedure:           connect.NewUnaryHandler(BillServiceGetBillProcedure, svc.GetBill, read...),
		BillServiceListBillsProcedure:         connect.NewUnaryHandler(BillServiceListBillsProcedure, svc.ListBills, read...),
		BillServiceDeleteBillProcedure:        connect.NewUnaryHandler(BillServiceDeleteBillProcedure, svc.DeleteBill, opts...),
	})
}

// BillServiceClient is a client for the receiptsplit.v1.BillService service.
type BillServiceClient struct {
	createSession     *connect.Client[api.CreateSessionRequest, api.SessionResponse]
	extractReceipt    *connect.Client[api.ExtractReceiptRequest, api.SessionResponse]
	loadItems         *connect.Client[api.LoadItemsRequest, api.SessionResponse]
	addItem           *connect.Client[api.AddItemRequest, api.SessionResponse]
	updateItem        *connect.Client[api.UpdateItemRequest, api.SessionResponse]
	removeItem        *connect.Client[api.RemoveItemRequest, api.SessionResponse]
	addParticipant    *connect.Client[api.AddParticipantRequest, api.SessionResponse]
	renameParticipant *connect.Client[api.RenameParticipantRequest, api.SessionResponse]
	removeParticipant *connect.Client[api.RemoveParticipantRequest, api.SessionResponse]
	toggleAssignment  *connect.Client[api.ToggleAssignmentRequest, api.SessionResponse]
	getSession        *connect.Client[api.GetSessionRequest, api.SessionResponse]
	finalizeBill      *connect.Client[api.FinalizeBillRequest, api.FinalizeBillResponse]
	getBill           *connect.Client[api.GetBillRequest, api.GetBillResponse]
	listBills         *connect.Client[api.ListBillsRequest, api.ListBillsResponse]
	deleteBill        *connect.Client[api.DeleteBillRequest, api.DeleteBillResponse]
}

// NewBillServiceClient constructs a client for the BillService. baseURL is
// the scheme and host, e.g. http://localhost:8080.
func NewBillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BillServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withJSONClient(opts)
	return &BillServiceClient{
		createSession:     connect.NewClient[api.CreateSessionRequest, api.SessionResponse](httpClient, baseURL+BillServiceCreateSessionProcedure, opts...),
		extractReceipt:    connect.NewClient[api.ExtractReceiptRequest, api.SessionResponse](httpClient, baseURL+BillServiceExtractReceiptProcedure, opts...),
		loadItems:         connect.NewClient[api.LoadItemsRequest, api.SessionResponse](httpClient, baseURL+BillServiceLoadItemsProcedure, opts...),
		addItem:           connect.NewClient[api.AddItemRequest, api.SessionResponse](httpClient, baseURL+BillServiceAddItemProcedure, opts...),
		updateItem:        connect.NewClient[api.UpdateItemRequest, api.SessionResponse](httpClient, baseURL+BillServiceUpdateItemProcedure, opts...),
		removeItem:        connect.NewClient[api.RemoveItemRequest, api.SessionResponse](httpClient, baseURL+BillServiceRemoveItemProcedure, opts...),
		addParticipant:    connect.NewClient[api.AddParticipantRequest, api.SessionResponse](httpClient, baseURL+BillServiceAddParticipantProcedure, opts...),
		renameParticipant: connect.NewClient[api.RenameParticipantRequest, api.SessionResponse](httpClient, baseURL+BillServiceRenameParticipantProcedure, opts...),
		removeParticipant: connect.NewClient[api.RemoveParticipantRequest, api.SessionResponse](httpClient, baseURL+BillServiceRemoveParticipantProcedure, opts...),
		toggleAssignment:  connect.NewClient[api.ToggleAssignmentRequest, api.SessionResponse](httpClient, baseURL+BillServiceToggleAssignmentProcedure, opts...),
		getSession:        connect.NewClient[api.GetSessionRequest, api.SessionResponse](httpClient, baseURL+BillServiceGetSessionProcedure, opts...),
		finalizeBill:      connect.NewClient[api.FinalizeBillRequest, api.FinalizeBillResponse](httpClient, baseURL+BillServiceFinalizeBillProcedure, opts...),
		getBill:           connect.NewClient[api.GetBillRequest, api.GetBillResponse](httpClient, baseURL+BillServiceGetBillProcedure, opts...),
		listBills:         connect.NewClient[api.ListBillsRequest, api.ListBillsResponse](httpClient, baseURL+BillServiceListBillsProcedure, opts...),
		deleteBill:        connect.NewClient[api.DeleteBillRequest, api.DeleteBillResponse](httpClient, baseURL+BillServiceDeleteBillProcedure, opts...),
	}
}

func (c *BillServiceClient) CreateSession(ctx context.Context, req *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *BillServiceClient) ExtractReceipt(ctx context.Context, req *connect.Request[api.ExtractReceiptRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.extractReceipt.CallUnary(ctx, req)
}

func (c *BillServiceClient) LoadItems(ctx context.Context, req *connect.Request[api.LoadItemsRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.loadItems.CallUnary(ctx, req)
}

func (c *BillServiceClient) AddItem(ctx context.Context, req *connect.Request[api.AddItemRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.addItem.CallUnary(ctx, req)
}

func (c *BillServiceClient) UpdateItem(ctx context.Context, req *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.updateItem.CallUnary(ctx, req)
}

func (c *BillServiceClient) RemoveItem(ctx context.Context, req *connect.Request[api.RemoveItemRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.removeItem.CallUnary(ctx, req)
}

func (c *BillServiceClient) AddParticipant(ctx context.Context, req *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.addParticipant.CallUnary(ctx, req)
}

func (c *BillServiceClient) RenameParticipant(ctx context.Context, req *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.renameParticipant.CallUnary(ctx, req)
}

func (c *BillServiceClient) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.removeParticipant.CallUnary(ctx, req)
}

func (c *BillServiceClient) ToggleAssignment(ctx context.Context, req *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.toggleAssignment.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetSession(ctx context.Context, req *connect.Request[api.GetSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *BillServiceClient) FinalizeBill(ctx context.Context, req *connect.Request[api.FinalizeBillRequest]) (*connect.Response[api.FinalizeBillResponse], error) {
	return c.finalizeBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	return c.listBills.CallUnary(ctx, req)
}

func (c *BillServiceClient) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error) {
	return c.deleteBill.CallUnary(ctx, req)
}
