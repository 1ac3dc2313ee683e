package calculator

import "sort"

// DebtEdge represents a debt from one participant to another, in minor units.
type DebtEdge struct {
	From   int // Participant who owes
	To     int // Participant who paid the receipt
	Amount int64
}

// CalculateDebts turns a split into the transfers needed to pay back whoever
// settled the receipt.
//
// Every participant other than the payer owes the payer their full share.
// Participants with a zero share are skipped. Edges are ordered by debtor id.
// An unknown payer yields no edges: nobody can be paid back.
func CalculateDebts(totals map[int]int64, payerID int) []DebtEdge {
	if _, ok := totals[payerID]; !ok {
		return nil
	}

	var edges []DebtEdge
	for participant, owed := range totals {
		if participant == payerID || owed <= 0 {
			continue
		}
		edges = append(edges, DebtEdge{
			From:   participant,
			To:     payerID,
			Amount: owed,
		})
	}

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].From < edges[j].From
	})

	return edges
}
