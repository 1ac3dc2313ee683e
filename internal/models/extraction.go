package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ExtractedItem is one receipt line as reported by the extraction service,
// after defaults have been applied.
type ExtractedItem struct {
	Name      string
	Quantity  int
	UnitPrice Amount
}

// Extraction is a decoded extraction payload.
type Extraction struct {
	Items []ExtractedItem

	// Total is the grand total printed on the receipt, when the payload
	// carries one.
	Total *Amount
}

// extractionEnvelope is the object form: {"items": [...], "total": 12.34}.
type extractionEnvelope struct {
	Items      json.RawMessage `json:"items"`
	Total      json.RawMessage `json:"total"`
	GrandTotal json.RawMessage `json:"grandTotal"`
}

// extractionRecord keeps every field raw so one malformed value only resets
// that field.
type extractionRecord struct {
	Name     json.RawMessage `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
	Price    json.RawMessage `json:"price"`
}

// DecodeExtraction parses an extraction payload. The payload is either a JSON
// array of records or an object holding such an array under "items".
//
// Per-record problems never fail the decode: a missing, unusable or
// out-of-range quantity becomes 1, a missing, negative, unusable or
// out-of-range price becomes 0, and entries
// that are not objects are skipped. ErrInvalidInput is returned only when the
// payload as a whole is not a record collection.
func DecodeExtraction(payload []byte) (*Extraction, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty extraction payload", ErrInvalidInput)
	}

	var out Extraction
	list := payload

	if payload[0] == '{' {
		var env extractionEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("%w: extraction payload: %v", ErrInvalidInput, err)
		}
		if len(env.Items) == 0 || string(env.Items) == "null" {
			return nil, fmt.Errorf("%w: extraction payload has no items list", ErrInvalidInput)
		}
		list = env.Items

		total := env.Total
		if len(total) == 0 {
			total = env.GrandTotal
		}
		if amount, ok := decodeAmount(total); ok {
			out.Total = &amount
		}
	}

	var raw []json.RawMessage
	if string(list) == "null" {
		return nil, fmt.Errorf("%w: extraction payload is null", ErrInvalidInput)
	}
	if err := json.Unmarshal(list, &raw); err != nil {
		return nil, fmt.Errorf("%w: extraction items are not a list: %v", ErrInvalidInput, err)
	}

	out.Items = make([]ExtractedItem, 0, len(raw))
	for _, entry := range raw {
		if t := bytes.TrimSpace(entry); len(t) == 0 || t[0] != '{' {
			continue
		}
		var rec extractionRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			continue
		}

		item := ExtractedItem{Quantity: 1}
		_ = json.Unmarshal(rec.Name, &item.Name)
		item.Name = strings.TrimSpace(item.Name)
		if q, ok := decodeQuantity(rec.Quantity); ok {
			item.Quantity = q
		}
		if p, ok := decodeAmount(rec.Price); ok {
			item.UnitPrice = p
		}
		if !lineTotalInRange(item.Quantity, item.UnitPrice) {
			item.Quantity = 1
		}
		out.Items = append(out.Items, item)
	}

	return &out, nil
}

// LoadFromExtraction replaces the bill's line items with the decoded payload.
// Item ids restart at 1 and every item starts unassigned. Participants are
// kept. On ErrInvalidInput the bill is left untouched.
func (b *Bill) LoadFromExtraction(payload []byte) error {
	extraction, err := DecodeExtraction(payload)
	if err != nil {
		return err
	}
	b.ReplaceItems(extraction.Items)
	b.SetDeclaredTotal(extraction.Total)
	return nil
}

// ReplaceItems swaps in a new set of line items with fresh ids.
// Passing nil leaves the bill with no items. Out-of-range quantities and
// prices fall back to the same defaults DecodeExtraction uses.
func (b *Bill) ReplaceItems(items []ExtractedItem) {
	b.items = make([]*LineItem, 0, len(items))
	b.nextItemID = 1
	for _, in := range items {
		id := b.nextItemID
		b.nextItemID++

		quantity := in.Quantity
		if quantity <= 0 || quantity > MaxQuantity {
			quantity = 1
		}
		price := in.UnitPrice
		if price < 0 || price > MaxAmount {
			price = 0
		}
		// A line total past MaxAmount keeps the price and counts one unit.
		if !lineTotalInRange(quantity, price) {
			quantity = 1
		}

		b.items = append(b.items, &LineItem{
			ID:        id,
			Name:      itemName(id, in.Name),
			Quantity:  quantity,
			UnitPrice: price,
		})
	}
}

// NewBillFromExtraction builds a bill from an extraction payload.
func NewBillFromExtraction(payload []byte) (*Bill, error) {
	b := NewBill()
	if err := b.LoadFromExtraction(payload); err != nil {
		return nil, err
	}
	return b, nil
}

// decodeNumber accepts a JSON number or a numeric string such as "$10.99".
func decodeNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Decimal{}, false
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Decimal{}, false
		}
		text = strings.TrimSpace(text)
		text = strings.TrimPrefix(text, "$")
		text = strings.ReplaceAll(text, ",", "")
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func decodeQuantity(raw json.RawMessage) (int, bool) {
	d, ok := decodeNumber(raw)
	if !ok || !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return 0, false
	}
	return int(d.IntPart()), true
}

func decodeAmount(raw json.RawMessage) (Amount, bool) {
	d, ok := decodeNumber(raw)
	if !ok || d.IsNegative() {
		return 0, false
	}
	return amountFromDecimal(d)
}
