package pending

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tabsettle/internal/models"
)

const (
	carol = "0xC0000000000000000000000000000000000000C1"
	alice = "0xA1000000000000000000000000000000000000A1"
	bob   = "0xB0000000000000000000000000000000000000B0"
)

func leg(legID, sender, to, atomic string) models.PendingTransfer {
	return models.PendingTransfer{
		GroupID:      "g1",
		TabID:        "t1",
		SettlementID: "s1",
		LegID:        legID,
		Sender:       sender,
		ToAddress:    to,
		AtomicAmount: atomic,
		AssetID:      "USDC",
	}
}

// indexFactories lists every Index implementation available in this environment.
func indexFactories(t *testing.T) map[string]func(t *testing.T) Index {
	factories := map[string]func(t *testing.T) Index{
		"memory": func(t *testing.T) Index { return NewMemoryIndex() },
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		factories["redis"] = func(t *testing.T) Index {
			client := redis.NewClient(&redis.Options{Addr: addr})
			t.Cleanup(func() { client.Close() })
			require.NoError(t, client.FlushDB(context.Background()).Err())
			return NewRedisIndex(client, time.Hour)
		}
	}
	return factories
}

func TestMatcher(t *testing.T) {
	ctx := context.Background()

	for name, newIndex := range indexFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("exact match is removed and not matched twice", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				require.NoError(t, m.Register(ctx, []models.PendingTransfer{
					leg("l1", carol, alice, "20000000"),
				}))

				obs := Observation{Sender: carol, Recipient: alice, AtomicAmount: "20000000"}
				got, err := m.Match(ctx, obs)
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, "l1", got.LegID)
				assert.Equal(t, "t1", got.TabID)
				assert.Equal(t, "s1", got.SettlementID)

				again, err := m.Match(ctx, obs)
				require.NoError(t, err)
				assert.Nil(t, again)
			})

			t.Run("recipient and sender compare case-insensitively", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				require.NoError(t, m.Register(ctx, []models.PendingTransfer{
					leg("l1", carol, alice, "5000000"),
				}))

				got, err := m.Match(ctx, Observation{
					Sender:       "0xc0000000000000000000000000000000000000c1",
					Recipient:    "0xa1000000000000000000000000000000000000a1",
					AtomicAmount: "5000000",
				})
				require.NoError(t, err)
				require.NotNil(t, got)
			})

			t.Run("decimal display amount does not match atomic amount", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				require.NoError(t, m.Register(ctx, []models.PendingTransfer{
					leg("l1", carol, alice, "20000000"),
				}))

				got, err := m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "20"})
				require.NoError(t, err)
				assert.Nil(t, got)

				got, err = m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "20000001"})
				require.NoError(t, err)
				assert.Nil(t, got, "no tolerance on atomic amounts")
			})

			t.Run("same amount to different recipients resolves by recipient", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				require.NoError(t, m.Register(ctx, []models.PendingTransfer{
					leg("to-alice", carol, alice, "10000000"),
					leg("to-bob", carol, bob, "10000000"),
				}))

				got, err := m.Match(ctx, Observation{Sender: carol, Recipient: bob, AtomicAmount: "10000000"})
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, "to-bob", got.LegID)

				got, err = m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "10000000"})
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, "to-alice", got.LegID)
			})

			t.Run("identical legs are consumed one per observation in order", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				first := leg("first", carol, alice, "7000000")
				second := leg("second", carol, alice, "7000000")
				second.SettlementID = "s2"
				require.NoError(t, m.Register(ctx, []models.PendingTransfer{first, second}))

				obs := Observation{Sender: carol, Recipient: alice, AtomicAmount: "7000000"}
				a, err := m.Match(ctx, obs)
				require.NoError(t, err)
				b, err := m.Match(ctx, obs)
				require.NoError(t, err)
				c, err := m.Match(ctx, obs)
				require.NoError(t, err)

				require.NotNil(t, a)
				require.NotNil(t, b)
				assert.Equal(t, "first", a.LegID)
				assert.Equal(t, "second", b.LegID)
				assert.Nil(t, c)
			})

			t.Run("asset filter applies when observed", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				require.NoError(t, m.Register(ctx, []models.PendingTransfer{
					leg("l1", carol, alice, "1000000"),
				}))

				got, err := m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "1000000", AssetID: "DAI"})
				require.NoError(t, err)
				assert.Nil(t, got)

				got, err = m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "1000000", AssetID: "usdc"})
				require.NoError(t, err)
				assert.NotNil(t, got)
			})

			t.Run("unknown sender is no match", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				got, err := m.Match(ctx, Observation{Sender: bob, Recipient: alice, AtomicAmount: "1"})
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("forget removes abandoned legs", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				entries := []models.PendingTransfer{leg("l1", carol, alice, "3000000")}
				require.NoError(t, m.Register(ctx, entries))
				require.NoError(t, m.Forget(ctx, entries))

				got, err := m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "3000000"})
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("concurrent identical confirmations match once", func(t *testing.T) {
				m := NewMatcher(newIndex(t), time.Hour)
				require.NoError(t, m.Register(ctx, []models.PendingTransfer{
					leg("l1", carol, alice, "9000000"),
				}))

				var matched atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 16; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						got, err := m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "9000000"})
						if err == nil && got != nil {
							matched.Add(1)
						}
					}()
				}
				wg.Wait()
				assert.EqualValues(t, 1, matched.Load())
			})
		})
	}
}

func TestMatcher_InvalidAmount(t *testing.T) {
	m := NewMatcher(NewMemoryIndex(), time.Hour)
	_, err := m.Match(context.Background(), Observation{Sender: carol, Recipient: alice, AtomicAmount: "1.5"})
	assert.ErrorIs(t, err, ErrInvalidObservation)
}

func TestMatcher_Expiry(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	m := NewMatcher(idx, 24*time.Hour)

	registeredAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return registeredAt }
	require.NoError(t, m.Register(ctx, []models.PendingTransfer{leg("l1", carol, alice, "1000000")}))

	// A late confirmation inside the window still matches.
	idx.now = func() time.Time { return registeredAt.Add(23 * time.Hour) }
	entries, err := idx.List(ctx, "0xc0000000000000000000000000000000000000c1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// After the window the entry is invisible and gets swept.
	idx.now = func() time.Time { return registeredAt.Add(25 * time.Hour) }
	got, err := m.Match(ctx, Observation{Sender: carol, Recipient: alice, AtomicAmount: "1000000"})
	require.NoError(t, err)
	assert.Nil(t, got)

	m.now = func() time.Time { return registeredAt.Add(25 * time.Hour) }
	purged, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}
