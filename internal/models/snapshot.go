package models

import (
	"fmt"
	"slices"
)

// Snapshot is the serialisable state of a Bill. Sessions and storage
// backends round-trip bills through it.
type Snapshot struct {
	Items             []ItemSnapshot        `json:"items"`
	Participants      []ParticipantSnapshot `json:"participants"`
	NextItemID        int                   `json:"next_item_id"`
	NextParticipantID int                   `json:"next_participant_id"`
	DeclaredTotal     *Amount               `json:"declared_total,omitempty"`
}

// ItemSnapshot is the serialisable form of a LineItem.
type ItemSnapshot struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  Amount `json:"unit_price"`
	AssignedTo []int  `json:"assigned_to,omitempty"`
}

// ParticipantSnapshot is the serialisable form of a Participant.
type ParticipantSnapshot struct {
	ID            int    `json:"id"`
	DisplayName   string `json:"display_name"`
	ComputedTotal Amount `json:"computed_total"`
}

// Snapshot captures the bill's current state.
func (b *Bill) Snapshot() Snapshot {
	s := Snapshot{
		Items:             make([]ItemSnapshot, len(b.items)),
		Participants:      make([]ParticipantSnapshot, len(b.participants)),
		NextItemID:        b.nextItemID,
		NextParticipantID: b.nextParticipantID,
	}
	for i, item := range b.items {
		s.Items[i] = ItemSnapshot{
			ID:         item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			AssignedTo: slices.Clone(item.assignedTo),
		}
	}
	for i, p := range b.participants {
		s.Participants[i] = ParticipantSnapshot{
			ID:            p.ID,
			DisplayName:   p.DisplayName,
			ComputedTotal: p.computedTotal,
		}
	}
	if b.declaredTotal != nil {
		t := *b.declaredTotal
		s.DeclaredTotal = &t
	}
	return s
}

// FromSnapshot rebuilds a bill. Snapshots with duplicate ids, negative
// amounts or assignments to unknown participants are rejected with
// ErrInvalidInput.
func FromSnapshot(s Snapshot) (*Bill, error) {
	b := &Bill{
		nextItemID:        max(s.NextItemID, 1),
		nextParticipantID: max(s.NextParticipantID, 1),
	}

	seen := make(map[int]bool, len(s.Participants))
	for _, ps := range s.Participants {
		if ps.ID <= 0 || seen[ps.ID] {
			return nil, fmt.Errorf("%w: participant id %d", ErrInvalidInput, ps.ID)
		}
		seen[ps.ID] = true
		b.participants = append(b.participants, &Participant{
			ID:            ps.ID,
			DisplayName:   participantName(ps.ID, ps.DisplayName),
			computedTotal: ps.ComputedTotal,
		})
		b.nextParticipantID = max(b.nextParticipantID, ps.ID+1)
	}

	itemIDs := make(map[int]bool, len(s.Items))
	for _, is := range s.Items {
		if is.ID <= 0 || itemIDs[is.ID] {
			return nil, fmt.Errorf("%w: item id %d", ErrInvalidInput, is.ID)
		}
		itemIDs[is.ID] = true
		if err := validateItem(is.Quantity, is.UnitPrice); err != nil {
			return nil, fmt.Errorf("item %d: %w", is.ID, err)
		}

		assigned := slices.Clone(is.AssignedTo)
		slices.Sort(assigned)
		assigned = slices.Compact(assigned)
		for _, pid := range assigned {
			if !seen[pid] {
				return nil, fmt.Errorf("%w: item %d assigned to unknown participant %d",
					ErrInvalidInput, is.ID, pid)
			}
		}

		b.items = append(b.items, &LineItem{
			ID:         is.ID,
			Name:       itemName(is.ID, is.Name),
			Quantity:   is.Quantity,
			UnitPrice:  is.UnitPrice,
			assignedTo: assigned,
		})
		b.nextItemID = max(b.nextItemID, is.ID+1)
	}

	b.SetDeclaredTotal(s.DeclaredTotal)
	return b, nil
}
