package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflowhq/caseflow/pkg/channels/gochannel"
	"github.com/caseflowhq/caseflow/pkg/eventbus"
	"github.com/caseflowhq/caseflow/pkg/events"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.RunCompletedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.RunCompleted{
		BaseEvent:       events.NewBaseEvent(events.RunCompletedEvent, "TKT-1"),
		RunID:           "run-12345678",
		StagesCompleted: 11,
	}
	require.NoError(t, bus.Publish(ctx, "TKT-1", sent))

	select {
	case event := <-received:
		completed, ok := event.(*events.RunCompleted)
		require.True(t, ok)
		assert.Equal(t, "run-12345678", completed.RunID)
		assert.Equal(t, 11, completed.StagesCompleted)
		assert.Equal(t, "TKT-1", completed.TicketID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
