package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/internal/events"
	"github.com/mmynk/receiptsplit/internal/metrics"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/pkg/api"
	"github.com/mmynk/receiptsplit/pkg/api/apiconnect"
)

// Extractor reads line items from a receipt photo and returns them as an
// extraction payload.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]byte, error)
}

var (
	errNoExtractor    = errors.New("receipt extraction is not configured")
	errMissingSession = errors.New("session_id is required")
	errMissingBill    = errors.New("bill_id is required")
	errEmptyBill      = errors.New("add at least one item before finalizing")
)

// extractionWarning is shown whenever a photo could not be turned into items.
const extractionWarning = "Could not read the receipt. Add the items manually."

var _ apiconnect.BillServiceHandler = (*BillService)(nil)

// BillService implements the Connect BillService: editing sessions, receipt
// extraction and finalized bills.
type BillService struct {
	sessions  *session.Manager
	store     storage.Store
	extractor Extractor
	publisher events.Publisher
	logger    *slog.Logger
}

// NewBillService creates a BillService. extractor may be nil, in which case
// ExtractReceipt always falls back to manual entry. A nil publisher logs
// finalized bills instead of publishing them.
func NewBillService(sessions *session.Manager, store storage.Store, extractor Extractor, publisher events.Publisher, logger *slog.Logger) *BillService {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BillService{
		sessions:  sessions,
		store:     store,
		extractor: extractor,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateSession starts a new editing session, optionally seeded with an
// extraction payload.
func (s *BillService) CreateSession(ctx context.Context, req *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	var bill *models.Bill
	if len(req.Msg.Extraction) > 0 {
		b, err := models.NewBillFromExtraction(req.Msg.Extraction)
		if err != nil {
			return nil, connectError(err)
		}
		bill = b
	}

	id, bill, err := s.sessions.Create(ctx, bill)
	if err != nil {
		s.logger.Error("Failed to create session", "error", err)
		return nil, connectError(err)
	}
	metrics.SplitComputations.Inc()

	s.logger.Info("Session created", "session_id", id, "items", len(bill.Items()))
	return sessionResponse(id, bill), nil
}

// ExtractReceipt sends a receipt photo to the extraction model and loads the
// result into the session. Extraction failures never fail the call: the
// session is left with no items and the response carries a warning.
func (s *BillService) ExtractReceipt(ctx context.Context, req *connect.Request[api.ExtractReceiptRequest]) (*connect.Response[api.SessionResponse], error) {
	if req.Msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingSession)
	}
	image, mimeType, err := DecodeImage(req.Msg.ImageData, req.Msg.MimeType)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	// The model call happens outside the session lock.
	payload, extractErr := s.extract(ctx, image, mimeType)

	bill, err := s.sessions.Update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		if extractErr == nil {
			if extractErr = b.LoadFromExtraction(payload); extractErr == nil {
				return nil
			}
		}
		b.ReplaceItems(nil)
		b.SetDeclaredTotal(nil)
		return nil
	})
	if err != nil {
		return nil, connectError(err)
	}
	metrics.SplitComputations.Inc()

	resp := sessionResponse(req.Msg.SessionID, bill)
	if extractErr != nil {
		s.logger.Warn("Receipt extraction failed", "session_id", req.Msg.SessionID, "error", extractErr)
		resp.Msg.Warnings = append([]string{extractionWarning}, resp.Msg.Warnings...)
	} else {
		s.logger.Info("Receipt extracted", "session_id", req.Msg.SessionID, "items", len(bill.Items()))
	}
	return resp, nil
}

func (s *BillService) extract(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	if s.extractor == nil {
		return nil, errNoExtractor
	}
	return s.extractor.Extract(ctx, image, mimeType)
}

// LoadItems replaces the session's items with an extraction payload supplied
// by the client.
func (s *BillService) LoadItems(ctx context.Context, req *connect.Request[api.LoadItemsRequest]) (*connect.Response[api.SessionResponse], error) {
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		return b.LoadFromExtraction(req.Msg.Extraction)
	})
}

// AddItem appends a manually entered line item.
func (s *BillService) AddItem(ctx context.Context, req *connect.Request[api.AddItemRequest]) (*connect.Response[api.SessionResponse], error) {
	price, err := parsePrice(req.Msg.UnitPrice)
	if err != nil {
		return nil, connectError(err)
	}
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		_, err := b.AddItem(req.Msg.Name, req.Msg.Quantity, price)
		return err
	})
}

// UpdateItem edits an item's name, quantity and unit price. Its
// assignments are kept.
func (s *BillService) UpdateItem(ctx context.Context, req *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.SessionResponse], error) {
	price, err := parsePrice(req.Msg.UnitPrice)
	if err != nil {
		return nil, connectError(err)
	}
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		return b.UpdateItem(req.Msg.ItemID, req.Msg.Name, req.Msg.Quantity, price)
	})
}

func (s *BillService) RemoveItem(ctx context.Context, req *connect.Request[api.RemoveItemRequest]) (*connect.Response[api.SessionResponse], error) {
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		return b.RemoveItem(req.Msg.ItemID)
	})
}

func (s *BillService) AddParticipant(ctx context.Context, req *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.SessionResponse], error) {
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		b.AddParticipant(req.Msg.DisplayName)
		return nil
	})
}

func (s *BillService) RenameParticipant(ctx context.Context, req *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.SessionResponse], error) {
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		return b.RenameParticipant(req.Msg.ParticipantID, req.Msg.DisplayName)
	})
}

// RemoveParticipant deletes a participant and their assignments.
func (s *BillService) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.SessionResponse], error) {
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		return b.RemoveParticipant(req.Msg.ParticipantID)
	})
}

func (s *BillService) ToggleAssignment(ctx context.Context, req *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.SessionResponse], error) {
	return s.update(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		return b.ToggleAssignment(req.Msg.ItemID, req.Msg.ParticipantID)
	})
}

// GetSession returns the session's bill with a freshly computed split.
func (s *BillService) GetSession(ctx context.Context, req *connect.Request[api.GetSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	if req.Msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingSession)
	}
	bill, err := s.sessions.View(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, connectError(err)
	}
	bill.ComputeSplit()
	metrics.SplitComputations.Inc()
	return sessionResponse(req.Msg.SessionID, bill), nil
}

func (s *BillService) update(ctx context.Context, sessionID string, fn func(*models.Bill) error) (*connect.Response[api.SessionResponse], error) {
	if sessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingSession)
	}
	bill, err := s.sessions.Update(ctx, sessionID, fn)
	if err != nil {
		if connectError(err).Code() == connect.CodeInternal {
			s.logger.Error("Session update failed", "session_id", sessionID, "error", err)
		}
		return nil, connectError(err)
	}
	metrics.SplitComputations.Inc()
	return sessionResponse(sessionID, bill), nil
}

// FinalizeBill computes the final split, saves the bill and ends the
// session. The bill is owned by the caller when authenticated.
func (s *BillService) FinalizeBill(ctx context.Context, req *connect.Request[api.FinalizeBillRequest]) (*connect.Response[api.FinalizeBillResponse], error) {
	if req.Msg.SessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingSession)
	}

	saved := &models.SavedBill{
		Title:   strings.TrimSpace(req.Msg.Title),
		OwnerID: middleware.GetUserID(ctx),
		PayerID: req.Msg.PayerID,
	}

	// Saving under the session lock keeps concurrent edits out of the
	// stored copy. The session itself is not written, so once SaveBill
	// succeeds the call succeeds.
	err := s.sessions.Hold(ctx, req.Msg.SessionID, func(b *models.Bill) error {
		if len(b.Items()) == 0 {
			return fmt.Errorf("%w: %v", models.ErrInvalidInput, errEmptyBill)
		}
		if saved.PayerID != 0 {
			if _, err := b.Participant(saved.PayerID); err != nil {
				return fmt.Errorf("%w: payer: %v", models.ErrInvalidInput, err)
			}
		}
		b.ComputeSplit()
		saved.Bill = b
		return s.store.SaveBill(ctx, saved)
	})
	if err != nil {
		if connectError(err).Code() == connect.CodeInternal {
			s.logger.Error("Failed to finalize bill", "session_id", req.Msg.SessionID, "error", err)
		}
		return nil, connectError(err)
	}
	metrics.BillsFinalized.Inc()

	if err := s.publisher.Publish(ctx, finalizedEvent(saved)); err != nil {
		s.logger.Error("Failed to publish bill event", "bill_id", saved.ID, "error", err)
	}
	if err := s.sessions.Delete(ctx, req.Msg.SessionID); err != nil {
		s.logger.Warn("Failed to delete finalized session", "session_id", req.Msg.SessionID, "error", err)
	}

	s.logger.Info("Bill finalized",
		"bill_id", saved.ID,
		"owner_id", saved.OwnerID,
		"participants", len(saved.Bill.Participants()),
		"subtotal", saved.Bill.Subtotal().String(),
	)
	return connect.NewResponse(&api.FinalizeBillResponse{
		Bill:     toAPISavedBill(saved),
		Warnings: billWarnings(saved.Bill),
	}), nil
}

// GetBill returns a finalized bill. Anyone holding the id may read it.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	if req.Msg.BillID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingBill)
	}
	saved, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("Failed to get bill", "bill_id", req.Msg.BillID, "error", err)
		}
		return nil, connectError(err)
	}
	return connect.NewResponse(&api.GetBillResponse{Bill: toAPISavedBill(saved)}), nil
}

// ListBills returns the caller's finalized bills, newest first.
func (s *BillService) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errLoginRequired)
	}

	bills, err := s.store.ListBillsByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list bills", "user_id", userID, "error", err)
		return nil, connectError(err)
	}

	summaries := make([]api.BillSummary, len(bills))
	for i, b := range bills {
		summaries[i] = api.BillSummary{
			ID:               b.ID,
			Title:            b.Title,
			Total:            b.Bill.GrandTotal().String(),
			ParticipantCount: len(b.Bill.Participants()),
			CreatedAt:        b.CreatedAt,
		}
	}
	return connect.NewResponse(&api.ListBillsResponse{Bills: summaries}), nil
}

// DeleteBill removes one of the caller's bills.
func (s *BillService) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errLoginRequired)
	}
	if req.Msg.BillID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingBill)
	}

	saved, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, connectError(err)
	}
	if saved.OwnerID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("only the owner can delete a bill"))
	}
	if err := s.store.DeleteBill(ctx, req.Msg.BillID); err != nil {
		s.logger.Error("Failed to delete bill", "bill_id", req.Msg.BillID, "error", err)
		return nil, connectError(err)
	}

	s.logger.Info("Bill deleted", "bill_id", req.Msg.BillID, "user_id", userID)
	return connect.NewResponse(&api.DeleteBillResponse{}), nil
}

// connectError maps domain errors onto Connect codes.
func connectError(err error) *connect.Error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return connectErr
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, session.ErrSessionNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, models.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// parsePrice reads a unit price in major units. Blank means zero.
func parsePrice(s string) (models.Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return models.ParseAmount(strings.TrimPrefix(s, "$"))
}

// DecodeImage accepts raw base64 or a data URL ("data:image/png;base64,...").
// A MIME type in the data URL is used when none is given explicitly.
func DecodeImage(data, mimeType string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		header, encoded, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data URL")
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
		data = encoded
	}

	image, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, "", fmt.Errorf("image_data is not valid base64: %w", err)
	}
	if len(image) == 0 {
		return nil, "", errors.New("image_data is required")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return image, mimeType, nil
}

func sessionResponse(id string, b *models.Bill) *connect.Response[api.SessionResponse] {
	return connect.NewResponse(&api.SessionResponse{
		SessionID: id,
		Bill:      toAPIBill(b),
		Warnings:  billWarnings(b),
	})
}

func billWarnings(b *models.Bill) []string {
	var warnings []string
	if err := b.CheckTotal(); err != nil {
		warnings = append(warnings, err.Error())
	}
	return warnings
}

// toAPIBill converts a bill whose split has already been computed.
func toAPIBill(b *models.Bill) api.Bill {
	items := b.Items()
	participants := b.Participants()

	out := api.Bill{
		Items:        make([]api.Item, len(items)),
		Participants: make([]api.Participant, len(participants)),
		Subtotal:     b.Subtotal().String(),
		GrandTotal:   b.GrandTotal().String(),
	}
	if total, ok := b.DeclaredTotal(); ok {
		out.DeclaredTotal = total.String()
	}
	for i, item := range items {
		assigned := item.AssignedTo()
		if assigned == nil {
			assigned = []int{}
		}
		out.Items[i] = api.Item{
			ID:         item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.String(),
			LineTotal:  item.LineTotal().String(),
			AssignedTo: assigned,
		}
	}
	for i, p := range participants {
		out.Participants[i] = api.Participant{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Total:       p.ComputedTotal().String(),
		}
	}
	return out
}

func toAPISavedBill(saved *models.SavedBill) api.SavedBill {
	out := api.SavedBill{
		ID:        saved.ID,
		Title:     saved.Title,
		OwnerID:   saved.OwnerID,
		PayerID:   saved.PayerID,
		CreatedAt: saved.CreatedAt,
		Bill:      toAPIBill(saved.Bill),
	}
	if saved.PayerID != 0 {
		for _, d := range saved.Bill.Debts(saved.PayerID) {
			out.Debts = append(out.Debts, api.Debt{From: d.From, To: d.To, Amount: d.Amount.String()})
		}
	}
	return out
}

func finalizedEvent(saved *models.SavedBill) events.BillFinalized {
	participants := saved.Bill.Participants()
	shares := make([]events.Share, len(participants))
	for i, p := range participants {
		shares[i] = events.Share{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Total:         p.ComputedTotal().String(),
		}
	}
	return events.BillFinalized{
		Type:       events.TypeBillFinalized,
		BillID:     saved.ID,
		OwnerID:    saved.OwnerID,
		Title:      saved.Title,
		Subtotal:   saved.Bill.Subtotal().String(),
		Shares:     shares,
		PayerID:    saved.PayerID,
		OccurredAt: time.Unix(saved.CreatedAt, 0).UTC(),
	}
}
