package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/isdelr/tasktracker-be/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRecentEvents_LimitAndScope(t *testing.T) {
	db := testutil.NewTestDB(t)
	clock := testutil.NewFakeClock(baseTime)
	events := NewEventService(db).WithClock(clock.Now)
	ctx := context.Background()
	ann := testutil.NewTestUser(t, db, "ann")
	bob := testutil.NewTestUser(t, db, "bob")

	for i := 0; i < 25; i++ {
		require.NoError(t, events.CreateEvent(ctx, ann, "task.create", "info", fmt.Sprintf("event %d", i), nil))
		clock.Advance(time.Second)
	}
	require.NoError(t, events.CreateEvent(ctx, bob, "task.create", "info", "bob", nil))

	recent, err := events.GetRecentEvents(ctx, ann, 0)
	require.NoError(t, err)
	require.Len(t, recent, defaultEventLimit)
	assert.Equal(t, "event 24", recent[0].Message)
	assert.Nil(t, recent[0].TaskID)

	few, err := events.GetRecentEvents(ctx, ann, 3)
	require.NoError(t, err)
	assert.Len(t, few, 3)

	bobs, err := events.GetRecentEvents(ctx, bob, 500)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, "bob", bobs[0].Message)
}
