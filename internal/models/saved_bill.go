package models

// SavedBill is a finalized bill as kept in storage.
type SavedBill struct {
	// ID is the unique identifier for the saved bill (UUID format).
	ID string

	// Title is the human-readable name for the bill.
	// Auto-generated from participant names when left empty.
	Title string

	// OwnerID is the user who finalized the bill. Empty for anonymous bills.
	OwnerID string

	// PayerID is the participant who paid the receipt, or 0 if not recorded.
	PayerID int

	// Bill holds the items, participants, assignments and computed totals.
	Bill *Bill

	// CreatedAt is the Unix timestamp when the bill was finalized.
	CreatedAt int64
}
