package api

import "encoding/json"

// Item is one receipt line.
type Item struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
	LineTotal  string `json:"lineTotal"`
	AssignedTo []int  `json:"assignedTo"`
}

// Participant carries the participant's share from the latest split.
type Participant struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	Total       string `json:"total"`
}

// Bill is the full editable state plus derived totals.
type Bill struct {
	Items         []Item        `json:"items"`
	Participants  []Participant `json:"participants"`
	Subtotal      string        `json:"subtotal"`
	DeclaredTotal string        `json:"declaredTotal,omitempty"`
	GrandTotal    string        `json:"grandTotal"`
}

// Debt is what one participant owes the payer.
type Debt struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Amount string `json:"amount"`
}

// SessionResponse is returned by every session procedure. Warnings are
// human readable notes such as a declared total that does not match.
type SessionResponse struct {
	SessionID string   `json:"sessionId"`
	Bill      Bill     `json:"bill"`
	Warnings  []string `json:"warnings,omitempty"`
}

type CreateSessionRequest struct {
	// Extraction optionally seeds the session with extracted items.
	Extraction json.RawMessage `json:"extraction,omitempty"`
}

type ExtractReceiptRequest struct {
	SessionID string `json:"sessionId"`
	// ImageData is the base64 encoded photo, with or without a data: URL prefix.
	ImageData string `json:"imageData"`
	MimeType  string `json:"mimeType,omitempty"`
}

type LoadItemsRequest struct {
	SessionID  string          `json:"sessionId"`
	Extraction json.RawMessage `json:"extraction"`
}

type AddItemRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type UpdateItemRequest struct {
	SessionID string `json:"sessionId"`
	ItemID    int    `json:"itemId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type RemoveItemRequest struct {
	SessionID string `json:"sessionId"`
	ItemID    int    `json:"itemId"`
}

type AddParticipantRequest struct {
	SessionID   string `json:"sessionId"`
	DisplayName string `json:"displayName,omitempty"`
}

type RenameParticipantRequest struct {
	SessionID     string `json:"sessionId"`
	ParticipantID int    `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

type RemoveParticipantRequest struct {
	SessionID     string `json:"sessionId"`
	ParticipantID int    `json:"participantId"`
}

type ToggleAssignmentRequest struct {
	SessionID     string `json:"sessionId"`
	ItemID        int    `json:"itemId"`
	ParticipantID int    `json:"participantId"`
}

type GetSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type FinalizeBillRequest struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title,omitempty"`
	// PayerID is the participant who paid; 0 when unknown.
	PayerID int `json:"payerId,omitempty"`
}

// SavedBill is a finalized bill.
type SavedBill struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	OwnerID   string `json:"ownerId,omitempty"`
	PayerID   int    `json:"payerId,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	Bill      Bill   `json:"bill"`
	Debts     []Debt `json:"debts,omitempty"`
}

type FinalizeBillResponse struct {
	Bill     SavedBill `json:"bill"`
	Warnings []string  `json:"warnings,omitempty"`
}

type GetBillRequest struct {
	BillID string `json:"billId"`
}

type GetBillResponse struct {
	Bill SavedBill `json:"bill"`
}

type ListBillsRequest struct{}

// BillSummary is a list entry.
type BillSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Total            string `json:"total"`
	ParticipantCount int    `json:"participantCount"`
	CreatedAt        int64  `json:"createdAt"`
}

type ListBillsResponse struct {
	Bills []BillSummary `json:"bills"`
}

type DeleteBillRequest struct {
	BillID string `json:"billId"`
}

type DeleteBillResponse struct{}
