package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
)

type stubSink struct {
	name      string
	err       error
	delivered []Notification
}

func (s *stubSink) Name() string                { return s.name }
func (s *stubSink) Probe(context.Context) error { return s.err }
func (s *stubSink) Deliver(_ context.Context, n Notification) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, n)
	return nil
}

func TestDailyReminder(t *testing.T) {
	now := time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC)
	n := DailyReminder(now)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "Daily Inventory Reminder", n.Title)
	assert.Equal(t, "Don't forget to fill out your inventory!", n.Body)
	assert.Equal(t, "daily-inventory-reminder", n.Tag)
	assert.Equal(t, []int{200, 100, 200}, n.Vibration)
	require.Len(t, n.Actions, 2)
	assert.Equal(t, "open", n.Actions[0].Action)
	assert.Equal(t, "dismiss", n.Actions[1].Action)
	assert.True(t, n.RequireInteraction)
	assert.Equal(t, now, n.Timestamp)

	// Each notification gets its own ID.
	assert.NotEqual(t, n.ID, DailyReminder(now).ID)
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	a := &stubSink{name: "a"}
	b := &stubSink{name: "b"}
	f := NewFanout(a, b)

	n := DailyReminder(time.Now())
	require.NoError(t, f.Deliver(context.Background(), n))
	assert.Len(t, a.delivered, 1)
	assert.Len(t, b.delivered, 1)
}

func TestFanout_SucceedsWhenOneSinkWorks(t *testing.T) {
	broken := &stubSink{name: "broken", err: errors.New("down")}
	working := &stubSink{name: "working"}
	f := NewFanout(broken, working)

	require.NoError(t, f.Deliver(context.Background(), DailyReminder(time.Now())))
	assert.Len(t, working.delivered, 1)
}

func TestFanout_FailsWhenAllSinksFail(t *testing.T) {
	f := NewFanout(&stubSink{name: "a", err: errors.New("down")})

	err := f.Deliver(context.Background(), DailyReminder(time.Now()))
	require.Error(t, err)
	assert.True(t, ierr.HasCategory(err, ierr.CategoryNotification))
}

func TestFanout_NoSinks(t *testing.T) {
	err := NewFanout().Deliver(context.Background(), DailyReminder(time.Now()))
	require.Error(t, err)
	assert.True(t, ierr.HasCategory(err, ierr.CategoryNotification))
}

func TestHub_Broadcast(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	assert.Equal(t, 1, h.SubscriberCount())

	n := DailyReminder(time.Now())
	require.NoError(t, h.Deliver(context.Background(), n))

	select {
	case got := <-ch:
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("notification not received")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe()
	unsubscribe()

	assert.Equal(t, 0, h.SubscriberCount())
	_, open := <-ch
	assert.False(t, open)
}

func TestHub_DeliverWithNoSubscribers(t *testing.T) {
	h := NewHub()
	require.NoError(t, h.Deliver(context.Background(), DailyReminder(time.Now())))
}

func TestSlogSink(t *testing.T) {
	s := NewSlogSink(nil)
	require.NoError(t, s.Probe(context.Background()))
	require.NoError(t, s.Deliver(context.Background(), DailyReminder(time.Now())))
}
