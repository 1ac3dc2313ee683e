package calculator

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestCalculateSplit(t *testing.T) {
	tests := []struct {
		name         string
		items        []Item
		participants []int
		want         map[int]int64
	}{
		{
			name: "equal split of two units",
			items: []Item{
				{ID: 1, Amount: 2 * 500, AssignedTo: []int{1, 2}},
			},
			participants: []int{1, 2},
			want:         map[int]int64{1: 500, 2: 500},
		},
		{
			name: "three-way indivisible split goes to lowest id",
			items: []Item{
				{ID: 1, Amount: 100, AssignedTo: []int{1, 2, 3}},
			},
			participants: []int{1, 2, 3},
			want:         map[int]int64{1: 34, 2: 33, 3: 33},
		},
		{
			name: "unassigned item falls back to everyone",
			items: []Item{
				{ID: 1, Amount: 100},
			},
			participants: []int{1, 2, 3},
			want:         map[int]int64{1: 34, 2: 33, 3: 33},
		},
		{
			name: "no participants yields empty result",
			items: []Item{
				{ID: 1, Amount: 100},
				{ID: 2, Amount: 250},
			},
			participants: nil,
			want:         map[int]int64{},
		},
		{
			name: "zero amount items contribute nothing",
			items: []Item{
				{ID: 1, Amount: 0, AssignedTo: []int{1}},
				{ID: 2, Amount: 0},
				{ID: 3, Amount: 300, AssignedTo: []int{2}},
			},
			participants: []int{1, 2},
			want:         map[int]int64{1: 0, 2: 300},
		},
		{
			name: "participant with nothing assigned still appears",
			items: []Item{
				{ID: 1, Amount: 1099, AssignedTo: []int{1}},
			},
			participants: []int{1, 2},
			want:         map[int]int64{1: 1099, 2: 0},
		},
		{
			name: "remainders accumulate across items before rounding",
			// Each participant gets 100/3 + 100/3 = 66.67:
			// floors 66 each, leftover 2 goes to ids 1 and 2.
			items: []Item{
				{ID: 1, Amount: 100, AssignedTo: []int{1, 2, 3}},
				{ID: 2, Amount: 100, AssignedTo: []int{1, 2, 3}},
			},
			participants: []int{1, 2, 3},
			want:         map[int]int64{1: 67, 2: 67, 3: 66},
		},
		{
			name: "largest remainder wins over lower id",
			// 1: 10/3 = 3.33, 2: 10/3 + 5/2 = 5.83, 3: 10/3 + 5/2 = 5.83
			// floors 3+5+5 = 13, leftover 2 → ids 2 and 3 (remainder .83).
			items: []Item{
				{ID: 1, Amount: 10, AssignedTo: []int{1, 2, 3}},
				{ID: 2, Amount: 5, AssignedTo: []int{2, 3}},
			},
			participants: []int{1, 2, 3},
			want:         map[int]int64{1: 3, 2: 6, 3: 6},
		},
		{
			name: "tie break uses participant id not slice order",
			items: []Item{
				{ID: 1, Amount: 100, AssignedTo: []int{7, 3, 5}},
			},
			participants: []int{7, 5, 3},
			want:         map[int]int64{3: 34, 5: 33, 7: 33},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSplit(tt.items, tt.participants)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CalculateSplit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateSplit_Conservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		participantCount := 1 + rng.Intn(7)
		participants := make([]int, participantCount)
		for i := range participants {
			participants[i] = i + 1
		}

		var items []Item
		var want int64
		itemCount := 1 + rng.Intn(10)
		for id := 1; id <= itemCount; id++ {
			amount := int64(rng.Intn(100000))
			var assigned []int
			for _, p := range participants {
				if rng.Intn(3) == 0 {
					assigned = append(assigned, p)
				}
			}
			items = append(items, Item{ID: id, Amount: amount, AssignedTo: assigned})
			want += amount
		}

		got := CalculateSplit(items, participants)

		var sum int64
		for _, v := range got {
			sum += v
		}
		if sum != want {
			t.Fatalf("round %d: split sums to %d, want %d (items=%v)", round, sum, want, items)
		}
	}
}

func TestCalculateSplit_Idempotent(t *testing.T) {
	items := []Item{
		{ID: 1, Amount: 2198, AssignedTo: []int{1, 2}},
		{ID: 2, Amount: 399},
		{ID: 3, Amount: 398, AssignedTo: []int{2, 3}},
	}
	participants := []int{1, 2, 3}

	first := CalculateSplit(items, participants)
	second := CalculateSplit(items, participants)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("recomputation differs: %v vs %v", first, second)
	}
}

func TestCalculateDebts(t *testing.T) {
	tests := []struct {
		name   string
		totals map[int]int64
		payer  int
		want   []DebtEdge
	}{
		{
			name:   "everyone owes the payer",
			totals: map[int]int64{1: 1000, 2: 550, 3: 450},
			payer:  1,
			want: []DebtEdge{
				{From: 2, To: 1, Amount: 550},
				{From: 3, To: 1, Amount: 450},
			},
		},
		{
			name:   "zero shares are skipped",
			totals: map[int]int64{1: 1000, 2: 0, 3: 10},
			payer:  3,
			want: []DebtEdge{
				{From: 1, To: 3, Amount: 1000},
			},
		},
		{
			name:   "unknown payer",
			totals: map[int]int64{1: 1000},
			payer:  9,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDebts(tt.totals, tt.payer)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CalculateDebts() = %v, want %v", got, tt.want)
			}
		})
	}
}
