package subscription

import (
	"errors"
	"testing"
	"time"

	billingerrors "plans/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		event   Event
		want    Status
		wantErr bool
	}{
		{"first payment activates", StatusPending, EventPaymentSucceeded, StatusActive, false},
		{"recovery from past due", StatusPastDue, EventPaymentSucceeded, StatusActive, false},
		{"renewal keeps active", StatusActive, EventPaymentSucceeded, StatusActive, false},
		{"failed renewal", StatusActive, EventPaymentFailed, StatusPastDue, false},
		{"failed first payment stays pending", StatusPending, EventPaymentFailed, StatusPending, false},
		{"retries exhausted", StatusPastDue, EventExpire, StatusExpired, false},
		{"cancel pending", StatusPending, EventCancel, StatusCanceled, false},
		{"cancel active", StatusActive, EventCancel, StatusCanceled, false},
		{"cancel past due", StatusPastDue, EventCancel, StatusCanceled, false},
		{"canceled is terminal", StatusCanceled, EventPaymentSucceeded, StatusCanceled, true},
		{"expired is terminal", StatusExpired, EventCancel, StatusExpired, true},
		{"cannot cancel twice", StatusCanceled, EventCancel, StatusCanceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			if tt.wantErr {
				assert.True(t, errors.Is(err, billingerrors.ErrInvalidTransition))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_Running(t *testing.T) {
	for _, s := range RunningStatuses {
		assert.True(t, s.IsRunning())
		assert.False(t, s.IsTerminal())
	}
	assert.False(t, StatusExpired.IsRunning())
	assert.False(t, StatusCanceled.IsRunning())
	assert.False(t, Status("paused").Valid())
}

func TestIsExpiredAt(t *testing.T) {
	now := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, IsExpiredAt(StatusExpired, nil, now))
	assert.True(t, IsExpiredAt(StatusActive, &past, now))
	assert.True(t, IsExpiredAt(StatusPastDue, &past, now))
	assert.False(t, IsExpiredAt(StatusActive, &future, now))
	assert.False(t, IsExpiredAt(StatusPending, nil, now))
	assert.False(t, IsExpiredAt(StatusCanceled, &past, now))
}

func TestPeriod_AddTo(t *testing.T) {
	jan31 := time.Date(2026, time.January, 31, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.February, 28, 9, 0, 0, 0, time.UTC), Monthly.AddTo(jan31))
	assert.Equal(t, time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC), Period{14, PeriodDay}.AddTo(jan31))
	assert.Equal(t, time.Date(2027, time.January, 31, 9, 0, 0, 0, time.UTC), Period{12, PeriodMonth}.AddTo(jan31))
	assert.Equal(t, jan31, Period{}.AddTo(jan31))
}

func TestPeriod_Validate(t *testing.T) {
	assert.NoError(t, Period{}.Validate())
	assert.NoError(t, Period{3, PeriodDay}.Validate())
	assert.Error(t, Period{3, "week"}.Validate())
	assert.Error(t, Period{-1, PeriodDay}.Validate())
	assert.Error(t, Period{2, ""}.Validate())
}
