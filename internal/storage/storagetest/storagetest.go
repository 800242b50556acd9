// Package storagetest holds behavior tests every storage.Store must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tabsettle/internal/models"
	"github.com/mmynk/tabsettle/internal/storage"
)

// NewTab returns an open tab with two participants and no expenses.
func NewTab(groupID, name string) *models.Tab {
	return &models.Tab{
		GroupID:  groupID,
		Name:     name,
		Currency: "USDC",
		Participants: []models.Participant{
			{MemberID: "alice", Address: "0x00000000000000000000000000000000000000a1"},
			{MemberID: "bob", Address: "0x00000000000000000000000000000000000000b0"},
		},
		Status: models.TabOpen,
	}
}

// Run exercises a Store created fresh by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("CreateTab generates ID and version", func(t *testing.T) {
		s := newStore(t)
		tab := NewTab("g1", "Dinner")

		require.NoError(t, s.CreateTab(ctx, tab))

		assert.NotEmpty(t, tab.ID)
		assert.EqualValues(t, 1, tab.Version)
		assert.False(t, tab.CreatedAt.IsZero())
	})

	t.Run("GetTab retrieves complete tab", func(t *testing.T) {
		s := newStore(t)
		original := NewTab("g1", "Trip")
		original.Expenses = []models.Expense{{
			ID:             "e1",
			PayerID:        "alice",
			Amount:         decimal.RequireFromString("12.345"),
			Description:    "Taxi",
			Currency:       "USDC",
			Timestamp:      time.Unix(1700000000, 0).UTC(),
			ParticipantIDs: []string{"alice", "bob"},
			Weights:        []decimal.Decimal{decimal.NewFromInt(2), decimal.NewFromInt(1)},
		}}
		require.NoError(t, s.CreateTab(ctx, original))

		got, err := s.GetTab(ctx, "g1", original.ID)
		require.NoError(t, err)

		assert.Equal(t, original.Name, got.Name)
		assert.Equal(t, original.Participants, got.Participants)
		assert.Equal(t, models.TabOpen, got.Status)
		require.Len(t, got.Expenses, 1)
		assert.True(t, got.Expenses[0].Amount.Equal(decimal.RequireFromString("12.345")))
		assert.Len(t, got.Expenses[0].Weights, 2)
		assert.Equal(t, []string{"alice", "bob"}, got.Expenses[0].ParticipantIDs)
	})

	t.Run("GetTab is scoped by group", func(t *testing.T) {
		s := newStore(t)
		tab := NewTab("g1", "Scoped")
		require.NoError(t, s.CreateTab(ctx, tab))

		_, err := s.GetTab(ctx, "other-group", tab.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("GetTab returns ErrNotFound for nonexistent tab", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetTab(ctx, "g1", "nonexistent-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListTabs returns only the group's tabs in creation order", func(t *testing.T) {
		s := newStore(t)
		first := NewTab("g1", "First")
		second := NewTab("g1", "Second")
		other := NewTab("g2", "Other")
		require.NoError(t, s.CreateTab(ctx, first))
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, s.CreateTab(ctx, second))
		require.NoError(t, s.CreateTab(ctx, other))

		tabs, err := s.ListTabs(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, tabs, 2)
		assert.Equal(t, "First", tabs[0].Name)
		assert.Equal(t, "Second", tabs[1].Name)

		empty, err := s.ListTabs(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("UpdateTab replaces record and bumps version", func(t *testing.T) {
		s := newStore(t)
		tab := NewTab("g1", "Update")
		require.NoError(t, s.CreateTab(ctx, tab))

		tab.Status = models.TabSettlementProposed
		tab.CurrentSettlement = &models.Settlement{
			ID:      "s1",
			AssetID: "USDC",
			Status:  models.SettlementProposed,
			Transactions: []models.SettlementTransaction{{
				ID: "l1", FromMemberID: "bob", ToMemberID: "alice",
				Amount: decimal.NewFromInt(5), AtomicAmount: "5000000", Status: models.LegPending,
			}},
		}
		require.NoError(t, s.UpdateTab(ctx, tab))
		assert.EqualValues(t, 2, tab.Version)

		got, err := s.GetTab(ctx, "g1", tab.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, got.Version)
		assert.Equal(t, models.TabSettlementProposed, got.Status)
		require.NotNil(t, got.CurrentSettlement)
		assert.Equal(t, "5000000", got.CurrentSettlement.Transactions[0].AtomicAmount)
	})

	t.Run("UpdateTab rejects stale version", func(t *testing.T) {
		s := newStore(t)
		tab := NewTab("g1", "Stale")
		require.NoError(t, s.CreateTab(ctx, tab))

		a, err := s.GetTab(ctx, "g1", tab.ID)
		require.NoError(t, err)
		b, err := s.GetTab(ctx, "g1", tab.ID)
		require.NoError(t, err)

		a.Name = "Writer A"
		require.NoError(t, s.UpdateTab(ctx, a))

		b.Name = "Writer B"
		err = s.UpdateTab(ctx, b)
		assert.ErrorIs(t, err, storage.ErrConflict)

		got, err := s.GetTab(ctx, "g1", tab.ID)
		require.NoError(t, err)
		assert.Equal(t, "Writer A", got.Name)
	})

	t.Run("UpdateTab returns ErrNotFound for nonexistent tab", func(t *testing.T) {
		s := newStore(t)
		tab := NewTab("g1", "Ghost")
		tab.ID = "ghost"
		tab.Version = 1
		assert.ErrorIs(t, s.UpdateTab(ctx, tab), storage.ErrNotFound)
	})

	t.Run("returned tabs do not alias stored state", func(t *testing.T) {
		s := newStore(t)
		tab := NewTab("g1", "Alias")
		require.NoError(t, s.CreateTab(ctx, tab))

		got, err := s.GetTab(ctx, "g1", tab.ID)
		require.NoError(t, err)
		got.Participants[0].MemberID = "mallory"

		again, err := s.GetTab(ctx, "g1", tab.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", again.Participants[0].MemberID)
	})
}
