package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/tasktracker-be/internal/models"
	"github.com/isdelr/tasktracker-be/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedNotification struct {
	userID string
	action string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []recordedNotification
}

func (n *fakeNotifier) NotifyUser(userID, action string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotification{userID: userID, action: action})
}

type timerFixture struct {
	db       *sql.DB
	clock    *testutil.FakeClock
	tasks    *TaskService
	timers   *TimeLogService
	events   *EventService
	notifier *fakeNotifier
}

var baseTime = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func newTimerFixture(t *testing.T) *timerFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	clock := testutil.NewFakeClock(baseTime)
	events := NewEventService(db).WithClock(clock.Now)
	notifier := &fakeNotifier{}
	return &timerFixture{
		db:       db,
		clock:    clock,
		tasks:    NewTaskService(db, events).WithClock(clock.Now),
		timers:   NewTimeLogService(db, events, notifier).WithClock(clock.Now),
		events:   events,
		notifier: notifier,
	}
}

func (f *timerFixture) newTask(t *testing.T, userID, title string) models.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), userID, models.TaskInput{Title: title})
	require.NoError(t, err)
	return task
}

func (f *timerFixture) countLogs(t *testing.T, taskID string, openOnly bool) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM time_logs WHERE task_id = ?"
	if openOnly {
		query += " AND end_time IS NULL"
	}
	var n int
	require.NoError(t, f.db.QueryRow(query, taskID).Scan(&n))
	return n
}

func TestStartTimer_CreatesOpenLog(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	entry, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, task.ID, entry.TaskID)
	assert.True(t, entry.StartTime.Equal(baseTime))
	assert.Nil(t, entry.EndTime)
	assert.Nil(t, entry.Duration)
	assert.True(t, entry.Running())
	require.NotNil(t, entry.Task)
	assert.Equal(t, "Write report", entry.Task.Title)
	assert.Equal(t, 1, f.countLogs(t, task.ID, true))
}

func TestStartTimer_UnknownTask(t *testing.T) {
	f := newTimerFixture(t)
	userID := testutil.NewTestUser(t, f.db, "ann")

	_, err := f.timers.StartTimer(context.Background(), userID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.countLogs(t, "missing", false))
}

func TestStartTimer_EmptyTaskID(t *testing.T) {
	f := newTimerFixture(t)
	userID := testutil.NewTestUser(t, f.db, "ann")

	_, err := f.timers.StartTimer(context.Background(), userID, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStartTimer_TwiceIsRejected(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	first, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.timers.StartTimer(ctx, userID, task.ID)
	assert.ErrorIs(t, err, ErrTimerRunning)

	logs, err := f.timers.GetTimeLogs(ctx, userID, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, first.ID, logs[0].ID)
	assert.True(t, logs[0].StartTime.Equal(baseTime))
}

func TestStartTimer_AfterStopStartsNewLog(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	_, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)
	_, err = f.timers.StopTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, f.countLogs(t, task.ID, false))
	assert.Equal(t, 1, f.countLogs(t, task.ID, true))
}

func TestStartTimer_ConcurrentStartsOpenOnlyOne(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Race")

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
		other     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.timers.StartTimer(ctx, userID, task.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrTimerRunning):
				conflicts++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, f.countLogs(t, task.ID, true))
}

func TestStopTimer_WithoutStart(t *testing.T) {
	f := newTimerFixture(t)
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	_, err := f.timers.StopTimer(context.Background(), userID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStopTimer_SecondStopFails(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	_, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)
	first, err := f.timers.StopTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	_, err = f.timers.StopTimer(ctx, userID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	logs, err := f.timers.GetTimeLogs(ctx, userID, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].EndTime)
	assert.True(t, logs[0].EndTime.Equal(*first.EndTime))
	assert.Equal(t, 5, *logs[0].Duration)
}

func TestStopTimer_DurationRounding(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"ninety seconds rounds up", 90 * time.Second, 2},
		{"eighty nine seconds rounds down", 89 * time.Second, 1},
		{"half a minute rounds up", 30 * time.Second, 1},
		{"under half a minute", 29 * time.Second, 0},
		{"exact hour", time.Hour, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTimerFixture(t)
			ctx := context.Background()
			userID := testutil.NewTestUser(t, f.db, "ann")
			task := f.newTask(t, userID, "Write report")

			_, err := f.timers.StartTimer(ctx, userID, task.ID)
			require.NoError(t, err)
			f.clock.Advance(tc.elapsed)

			entry, err := f.timers.StopTimer(ctx, userID, task.ID)
			require.NoError(t, err)
			require.NotNil(t, entry.Duration)
			assert.Equal(t, tc.want, *entry.Duration)
			require.NotNil(t, entry.EndTime)
			assert.True(t, entry.EndTime.Equal(baseTime.Add(tc.elapsed)))
			assert.False(t, entry.Running())
		})
	}
}

func TestDurationMinutes_ClockMovedBackwards(t *testing.T) {
	assert.Equal(t, 0, durationMinutes(baseTime, baseTime.Add(-3*time.Minute)))
}

func TestStoredDurationIsNotRecomputed(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	_, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)
	_, err = f.timers.StopTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	f.clock.Set(baseTime.Add(-48 * time.Hour))
	logs, err := f.timers.GetTimeLogs(ctx, userID, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 20, *logs[0].Duration)
}

func TestTimers_OwnershipIsolation(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	ann := testutil.NewTestUser(t, f.db, "ann")
	bob := testutil.NewTestUser(t, f.db, "bob")
	task := f.newTask(t, ann, "Ann's task")

	_, err := f.timers.StartTimer(ctx, bob, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.countLogs(t, task.ID, false))

	_, err = f.timers.StartTimer(ctx, ann, task.ID)
	require.NoError(t, err)

	_, err = f.timers.StopTimer(ctx, bob, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, f.countLogs(t, task.ID, true))

	logs, err := f.timers.GetTimeLogs(ctx, bob, "")
	require.NoError(t, err)
	assert.Empty(t, logs)

	logs, err = f.timers.GetTimeLogs(ctx, bob, task.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	_, err = f.timers.GetRunningTimer(ctx, bob, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetTimeLogs_SortedByStartDescending(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	first := f.newTask(t, userID, "First")
	second := f.newTask(t, userID, "Second")
	third := f.newTask(t, userID, "Third")

	// Inserted out of chronological order.
	starts := []struct {
		task models.Task
		at   time.Time
	}{
		{second, baseTime.Add(2 * time.Hour)},
		{first, baseTime},
		{third, baseTime.Add(time.Hour)},
	}
	for _, s := range starts {
		f.clock.Set(s.at)
		_, err := f.timers.StartTimer(ctx, userID, s.task.ID)
		require.NoError(t, err)
		f.clock.Advance(15 * time.Minute)
		_, err = f.timers.StopTimer(ctx, userID, s.task.ID)
		require.NoError(t, err)
	}

	logs, err := f.timers.GetTimeLogs(ctx, userID, "")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "Second", logs[0].Task.Title)
	assert.Equal(t, "Third", logs[1].Task.Title)
	assert.Equal(t, "First", logs[2].Task.Title)

	filtered, err := f.timers.GetTimeLogs(ctx, userID, third.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, third.ID, filtered[0].TaskID)
}

func TestGetRunningTimer(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	_, err := f.timers.GetRunningTimer(ctx, userID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	started, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	running, err := f.timers.GetRunningTimer(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, running.ID)
}

func TestStopStaleTimers(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	stale := f.newTask(t, userID, "Forgotten")
	fresh := f.newTask(t, userID, "Active")

	_, err := f.timers.StartTimer(ctx, userID, stale.ID)
	require.NoError(t, err)
	f.clock.Advance(11 * time.Hour)
	_, err = f.timers.StartTimer(ctx, userID, fresh.ID)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	stopped, err := f.timers.StopStaleTimers(ctx, 12*time.Hour)
	require.NoError(t, err)
	require.Len(t, stopped, 1)
	assert.Equal(t, stale.ID, stopped[0].TaskID)
	assert.Equal(t, 13*60, *stopped[0].Duration)

	assert.Equal(t, 0, f.countLogs(t, stale.ID, true))
	assert.Equal(t, 1, f.countLogs(t, fresh.ID, true))

	events, err := f.events.GetRecentEvents(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "timer.autostop", events[0].Type)
}

func TestTimers_NotifyOwner(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	_, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)
	_, err = f.timers.StopTimer(ctx, userID, task.ID)
	require.NoError(t, err)

	assert.Equal(t, []recordedNotification{
		{userID: userID, action: "timer_started"},
		{userID: userID, action: "timer_stopped"},
	}, f.notifier.calls)
}

func TestDeleteTask_RemovesItsTimeLogs(t *testing.T) {
	f := newTimerFixture(t)
	ctx := context.Background()
	userID := testutil.NewTestUser(t, f.db, "ann")
	task := f.newTask(t, userID, "Write report")

	_, err := f.timers.StartTimer(ctx, userID, task.ID)
	require.NoError(t, err)
	require.NoError(t, f.tasks.DeleteTask(ctx, userID, task.ID))

	logs, err := f.timers.GetTimeLogs(ctx, userID, "")
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, 0, f.countLogs(t, task.ID, false))
}
