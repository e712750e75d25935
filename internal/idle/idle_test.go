package idle

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMask(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Mask
	}{
		{"no args subscribes to all", nil, All},
		{"single", []string{"player"}, Player},
		{"case insensitive", []string{"PLAYER", "Mixer"}, Player | Mixer},
		{"unknown ignored", []string{"player", "bogus"}, Player},
		{"only unknown means all", []string{"bogus"}, All},
		{"duplicates", []string{"playlist", "playlist"}, Playlist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMask(tt.args))
		})
	}
}

func TestMaskStringsFollowBitOrder(t *testing.T) {
	m := Options | Database | Player
	assert.Equal(t, []string{"database", "player", "options"}, m.Strings())
	assert.Equal(t, names[:], All.Strings())
}

func TestWaitDeliversPendingImmediately(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("c1")

	h.Publish(Player)

	select {
	case m := <-s.Wait(All):
		assert.Equal(t, Player, m)
	default:
		t.Fatal("pending event was not delivered immediately")
	}
	assert.False(t, s.Waiting())
	assert.Zero(t, s.Pending())
}

func TestWaitIgnoresUnsubscribedPending(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("c1")

	h.Publish(Mixer)
	ch := s.Wait(Player)

	select {
	case m := <-ch:
		t.Fatalf("unexpected wake-up with %v", m.Strings())
	default:
	}
	assert.True(t, s.Waiting())

	h.Publish(Player)
	select {
	case m := <-ch:
		// Only the requested category is reported.
		assert.Equal(t, Player, m)
	case <-time.After(time.Second):
		t.Fatal("subscriber was not woken")
	}
	// Delivery clears everything that was pending, reported or not.
	assert.Zero(t, s.Pending())
}

func TestPublishWakesOnlyMatchingWaiters(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("a")
	b := h.Subscribe("b")

	cha := a.Wait(Player)
	chb := b.Wait(Database)

	woken := h.Publish(Player | Options)
	assert.Equal(t, 1, woken)

	require.Len(t, cha, 1)
	assert.Equal(t, Player, <-cha)
	assert.Len(t, chb, 0)
	assert.True(t, b.Waiting())
	assert.Equal(t, Player|Options, b.Pending())
}

func TestCancelLeavesPendingUntouched(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("c1")

	s.Wait(Player)
	s.Cancel()
	assert.False(t, s.Waiting())

	// Events published after a cancel accumulate for the next idle.
	assert.Zero(t, h.Publish(Player))
	assert.Equal(t, Player, s.Pending())
}

func TestCancelReclaimsUnreceivedNotification(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("c1")

	ch := s.Wait(Player)
	h.Publish(Player | Mixer)
	require.Len(t, ch, 1)

	// Input arrived before the connection read the wake-up.
	s.Cancel()
	assert.Len(t, ch, 0)
	assert.Equal(t, Player|Mixer, s.Pending())

	select {
	case m := <-s.Wait(All):
		assert.Equal(t, Player|Mixer, m)
	default:
		t.Fatal("reclaimed events were lost")
	}
}

func TestUnsubscribe(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("c1")
	require.Equal(t, 1, h.Len())

	h.Unsubscribe(s)
	assert.Equal(t, 0, h.Len())
	assert.Zero(t, h.Publish(All))
	assert.Zero(t, s.Pending())
}

func TestPublishZeroIsNoop(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("c1")
	s.Wait(All)

	assert.Zero(t, h.Publish(0))
	assert.True(t, s.Waiting())
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	h := NewHub()

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers * 2)

	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			s := h.Subscribe(fmt.Sprintf("client-%d", i))
			for j := 0; j < 100; j++ {
				ch := s.Wait(All)
				select {
				case <-ch:
				case <-time.After(time.Millisecond):
					s.Cancel()
				}
			}
			h.Unsubscribe(s)
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish(Player)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 0, h.Len())
}
