package models

import "time"

// TabStatus is the lifecycle state of a Tab.
type TabStatus string

const (
	TabOpen               TabStatus = "open"
	TabSettlementProposed TabStatus = "settlement_proposed"
	TabSettling           TabStatus = "settling"
	TabSettled            TabStatus = "settled"
)

// Valid reports whether s is a known status.
func (s TabStatus) Valid() bool {
	switch s {
	case TabOpen, TabSettlementProposed, TabSettling, TabSettled:
		return true
	}
	return false
}

// Participant is a member of the tab as it was when the tab was created.
type Participant struct {
	MemberID string `json:"member_id"`
	Address  string `json:"address"`
}

// Tab is an expense-tracking unit scoped to a group.
type Tab struct {
	// ID is the unique identifier for the tab (UUID format).
	ID string `json:"id"`

	// GroupID is the conversation or group the tab belongs to.
	GroupID string `json:"group_id"`

	// Name is the display name of the tab (e.g., "Lisbon trip").
	Name string `json:"name"`

	// Currency is the fixed settlement asset symbol (e.g., "USDC").
	Currency string `json:"currency"`

	// Participants is the ordered member snapshot. It is immutable once set.
	Participants []Participant `json:"participants"`

	// Expenses may only change while Status is TabOpen.
	Expenses []Expense `json:"expenses"`

	Status TabStatus `json:"status"`

	// CurrentSettlement is the single active settlement attempt, if any.
	CurrentSettlement *Settlement `json:"current_settlement,omitempty"`

	// Version increments on every successful write and is checked by the store.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participant returns the participant with the given member ID.
func (t *Tab) Participant(memberID string) (Participant, bool) {
	for _, p := range t.Participants {
		if p.MemberID == memberID {
			return p, true
		}
	}
	return Participant{}, false
}

// ParticipantIDs returns member IDs in tab order.
func (t *Tab) ParticipantIDs() []string {
	ids := make([]string, len(t.Participants))
	for i, p := range t.Participants {
		ids[i] = p.MemberID
	}
	return ids
}

// ExpenseIndex returns the position of the expense with the given ID, or -1.
func (t *Tab) ExpenseIndex(expenseID string) int {
	for i := range t.Expenses {
		if t.Expenses[i].ID == expenseID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without aliasing a stored record.
func (t *Tab) Clone() *Tab {
	c := *t
	c.Participants = append([]Participant(nil), t.Participants...)
	c.Expenses = make([]Expense, len(t.Expenses))
	for i, e := range t.Expenses {
		c.Expenses[i] = e.Clone()
	}
	if t.CurrentSettlement != nil {
		s := t.CurrentSettlement.Clone()
		c.CurrentSettlement = &s
	}
	return &c
}
