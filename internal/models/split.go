package models

import "github.com/mmynk/receiptsplit/internal/calculator"

// PersonSplit represents one participant's calculated share of a bill.
// This is the output of the split calculation, ready for display.
type PersonSplit struct {
	ParticipantID int
	DisplayName   string
	Total         Amount
}

// ComputeSplit runs the allocation engine over the current bill state, stores
// each participant's share on the participant and returns the shares by id.
//
// It never fails and always produces the same result for the same state.
// With no participants the result is empty.
func (b *Bill) ComputeSplit() map[int]Amount {
	items := make([]calculator.Item, len(b.items))
	for i, item := range b.items {
		items[i] = calculator.Item{
			ID:         item.ID,
			Amount:     int64(item.LineTotal()),
			AssignedTo: item.assignedTo,
		}
	}

	ids := make([]int, len(b.participants))
	for i, p := range b.participants {
		ids[i] = p.ID
	}

	totals := calculator.CalculateSplit(items, ids)

	result := make(map[int]Amount, len(totals))
	for _, p := range b.participants {
		p.computedTotal = Amount(totals[p.ID])
		result[p.ID] = p.computedTotal
	}
	return result
}

// Splits recomputes the bill and returns one PersonSplit per participant, in
// participant order.
func (b *Bill) Splits() []PersonSplit {
	b.ComputeSplit()

	splits := make([]PersonSplit, len(b.participants))
	for i, p := range b.participants {
		splits[i] = PersonSplit{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Total:         p.computedTotal,
		}
	}
	return splits
}

// Debt is an amount one participant owes whoever paid the receipt.
type Debt struct {
	From   int
	To     int
	Amount Amount
}

// Debts recomputes the split and returns what every other participant owes
// payerID, ordered by debtor id. An unknown payer yields no debts.
func (b *Bill) Debts(payerID int) []Debt {
	shares := b.ComputeSplit()

	totals := make(map[int]int64, len(shares))
	for id, amount := range shares {
		totals[id] = int64(amount)
	}

	edges := calculator.CalculateDebts(totals, payerID)
	if len(edges) == 0 {
		return nil
	}
	debts := make([]Debt, len(edges))
	for i, e := range edges {
		debts[i] = Debt{From: e.From, To: e.To, Amount: Amount(e.Amount)}
	}
	return debts
}
