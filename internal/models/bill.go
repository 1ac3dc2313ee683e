package models

import (
	"fmt"
	"slices"
	"strings"
)

// LineItem represents a single line on a receipt.
// An item can be shared among any subset of the bill's participants.
type LineItem struct {
	// ID is unique within the bill, assigned in creation order starting at 1.
	ID int

	// Name is the label printed on the receipt (e.g., "Burger").
	Name string

	// Quantity is the number of units ordered.
	Quantity int

	// UnitPrice is the price of one unit in minor units.
	UnitPrice Amount

	// assignedTo holds participant ids, kept sorted and unique.
	assignedTo []int
}

// LineTotal returns Quantity × UnitPrice. Bills keep it within MaxAmount.
func (i LineItem) LineTotal() Amount {
	return Amount(int64(i.Quantity) * int64(i.UnitPrice))
}

// AssignedTo returns the ids of the participants sharing this item, ascending.
// An empty result means the item is unassigned and is shared by everyone.
func (i LineItem) AssignedTo() []int {
	return slices.Clone(i.assignedTo)
}

// IsAssignedTo reports whether the participant shares this item.
func (i LineItem) IsAssignedTo(participantID int) bool {
	_, found := slices.BinarySearch(i.assignedTo, participantID)
	return found
}

// Participant is one person the bill is split between.
type Participant struct {
	// ID is unique within the bill, assigned in creation order starting at 1.
	ID int

	// DisplayName defaults to "Person {id}" and need not be unique.
	DisplayName string

	computedTotal Amount
}

// ComputedTotal is the participant's share as of the last ComputeSplit.
func (p Participant) ComputedTotal() Amount {
	return p.computedTotal
}

// Bill holds the line items and participants of one receipt being split.
// The zero value is not usable; create bills with NewBill.
type Bill struct {
	items        []*LineItem
	participants []*Participant

	nextItemID        int
	nextParticipantID int

	declaredTotal *Amount
}

// NewBill returns an empty bill for manual entry.
func NewBill() *Bill {
	return &Bill{nextItemID: 1, nextParticipantID: 1}
}

// DefaultParticipantName is the name given to participants without one.
func DefaultParticipantName(id int) string {
	return fmt.Sprintf("Person %d", id)
}

// DefaultItemName is the name given to line items without one.
func DefaultItemName(id int) string {
	return fmt.Sprintf("Item %d", id)
}

// AddParticipant creates a participant with the next unused id.
// A blank name falls back to DefaultParticipantName.
func (b *Bill) AddParticipant(name string) Participant {
	id := b.nextParticipantID
	b.nextParticipantID++

	p := &Participant{ID: id, DisplayName: participantName(id, name)}
	b.participants = append(b.participants, p)
	return *p
}

// RenameParticipant changes a participant's display name. A blank name resets
// it to the default rather than being rejected.
func (b *Bill) RenameParticipant(id int, name string) error {
	p := b.findParticipant(id)
	if p == nil {
		return fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}
	p.DisplayName = participantName(id, name)
	return nil
}

// RemoveParticipant deletes a participant and drops it from every item's
// assignment set. Removing the last participant is allowed.
func (b *Bill) RemoveParticipant(id int) error {
	idx := b.participantIndex(id)
	if idx < 0 {
		return fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}

	b.participants = slices.Delete(b.participants, idx, idx+1)
	for _, item := range b.items {
		if i, found := slices.BinarySearch(item.assignedTo, id); found {
			item.assignedTo = slices.Delete(item.assignedTo, i, i+1)
		}
	}
	return nil
}

// ToggleAssignment adds the participant to the item's assignment set, or
// removes it if already present. Toggling twice restores the original set.
func (b *Bill) ToggleAssignment(itemID, participantID int) error {
	item := b.findItem(itemID)
	if item == nil {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if b.findParticipant(participantID) == nil {
		return fmt.Errorf("participant %d: %w", participantID, ErrNotFound)
	}

	i, found := slices.BinarySearch(item.assignedTo, participantID)
	if found {
		item.assignedTo = slices.Delete(item.assignedTo, i, i+1)
	} else {
		item.assignedTo = slices.Insert(item.assignedTo, i, participantID)
	}
	return nil
}

// AddItem appends a manually entered line item. A zero quantity is accepted
// so the line stays visible while being edited.
func (b *Bill) AddItem(name string, quantity int, unitPrice Amount) (LineItem, error) {
	if err := validateItem(quantity, unitPrice); err != nil {
		return LineItem{}, err
	}

	id := b.nextItemID
	b.nextItemID++

	item := &LineItem{
		ID:        id,
		Name:      itemName(id, name),
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	b.items = append(b.items, item)
	return *item, nil
}

// UpdateItem replaces an item's name, quantity and unit price. Its
// assignments are kept.
func (b *Bill) UpdateItem(id int, name string, quantity int, unitPrice Amount) error {
	item := b.findItem(id)
	if item == nil {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err := validateItem(quantity, unitPrice); err != nil {
		return err
	}

	item.Name = itemName(id, name)
	item.Quantity = quantity
	item.UnitPrice = unitPrice
	return nil
}

// RemoveItem deletes a line item. Ids of the remaining items do not change.
func (b *Bill) RemoveItem(id int) error {
	idx := slices.IndexFunc(b.items, func(item *LineItem) bool { return item.ID == id })
	if idx < 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	b.items = slices.Delete(b.items, idx, idx+1)
	return nil
}

// SetDeclaredTotal records the grand total printed on the receipt.
// Nil clears it, making the grand total the sum of the line items.
func (b *Bill) SetDeclaredTotal(total *Amount) {
	if total == nil {
		b.declaredTotal = nil
		return
	}
	t := *total
	b.declaredTotal = &t
}

// DeclaredTotal returns the receipt's printed grand total, if one was given.
func (b *Bill) DeclaredTotal() (Amount, bool) {
	if b.declaredTotal == nil {
		return 0, false
	}
	return *b.declaredTotal, true
}

// Items returns copies of the line items in insertion order.
func (b *Bill) Items() []LineItem {
	items := make([]LineItem, len(b.items))
	for i, item := range b.items {
		items[i] = *item
		items[i].assignedTo = slices.Clone(item.assignedTo)
	}
	return items
}

// Participants returns copies of the participants in insertion order.
func (b *Bill) Participants() []Participant {
	participants := make([]Participant, len(b.participants))
	for i, p := range b.participants {
		participants[i] = *p
	}
	return participants
}

// Item returns a copy of the item with the given id.
func (b *Bill) Item(id int) (LineItem, error) {
	item := b.findItem(id)
	if item == nil {
		return LineItem{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	cp := *item
	cp.assignedTo = slices.Clone(item.assignedTo)
	return cp, nil
}

// Participant returns a copy of the participant with the given id.
func (b *Bill) Participant(id int) (Participant, error) {
	p := b.findParticipant(id)
	if p == nil {
		return Participant{}, fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}
	return *p, nil
}

// Subtotal is the sum of every line total.
func (b *Bill) Subtotal() Amount {
	var sum Amount
	for _, item := range b.items {
		sum += item.LineTotal()
	}
	return sum
}

// GrandTotal is the declared receipt total when known, else the subtotal.
func (b *Bill) GrandTotal() Amount {
	if b.declaredTotal != nil {
		return *b.declaredTotal
	}
	return b.Subtotal()
}

// CheckTotal reports ErrTotalMismatch when the line items differ from the
// declared total by more than one minor unit.
func (b *Bill) CheckTotal() error {
	if b.declaredTotal == nil {
		return nil
	}
	diff := *b.declaredTotal - b.Subtotal()
	if diff < 0 {
		diff = -diff
	}
	if diff > 1 {
		return fmt.Errorf("%w: items sum to %s, receipt says %s",
			ErrTotalMismatch, b.Subtotal(), *b.declaredTotal)
	}
	return nil
}

func (b *Bill) findItem(id int) *LineItem {
	for _, item := range b.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (b *Bill) findParticipant(id int) *Participant {
	if idx := b.participantIndex(id); idx >= 0 {
		return b.participants[idx]
	}
	return nil
}

func (b *Bill) participantIndex(id int) int {
	return slices.IndexFunc(b.participants, func(p *Participant) bool { return p.ID == id })
}

func validateItem(quantity int, unitPrice Amount) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity %d is negative", ErrInvalidInput, quantity)
	}
	if quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity %d exceeds %d", ErrInvalidInput, quantity, MaxQuantity)
	}
	if unitPrice < 0 {
		return fmt.Errorf("%w: unit price %s is negative", ErrInvalidInput, unitPrice)
	}
	if unitPrice > MaxAmount {
		return fmt.Errorf("%w: unit price %s exceeds %s", ErrInvalidInput, unitPrice, MaxAmount)
	}
	if !lineTotalInRange(quantity, unitPrice) {
		return fmt.Errorf("%w: line total of %d × %s exceeds %s", ErrInvalidInput, quantity, unitPrice, MaxAmount)
	}
	return nil
}

// lineTotalInRange reports whether quantity × unitPrice stays within
// MaxAmount. Both factors must already be within their own bounds, so the
// product cannot overflow int64.
func lineTotalInRange(quantity int, unitPrice Amount) bool {
	return int64(quantity)*int64(unitPrice) <= int64(MaxAmount)
}

func participantName(id int, name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultParticipantName(id)
	}
	return name
}

func itemName(id int, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultItemName(id)
	}
	return name
}
