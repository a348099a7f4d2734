package speed

import (
	"context"
	"testing"
	"time"

	"speedgate/internal/recognition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastEstimate() Estimate {
	return Estimate{Kmh: 34.56, Meters: 1.92, Duration: 200 * time.Millisecond, MeasuredAt: at(1200)}
}

func TestViolationTrigger_BelowLimitDoesNothing(t *testing.T) {
	enc := &fakeEncoder{}
	rec := &instantRecognizer{plate: "AB123"}
	sink := &recordingSink{}
	tr := NewViolationTrigger(30, time.Second, enc, rec, sink, newTestLogger(t))

	assert.False(t, tr.OnEstimate(context.Background(), Estimate{Kmh: 30}, NewFrame(8, 8)))
	assert.False(t, tr.OnEstimate(context.Background(), Estimate{Kmh: 12.5}, NewFrame(8, 8)))
	tr.Wait()

	assert.Zero(t, enc.calls.Load())
	assert.Zero(t, rec.calls.Load())
	assert.Empty(t, sink.all())
}

func TestViolationTrigger_ReportsViolation(t *testing.T) {
	rec := &instantRecognizer{plate: " ka-05-mn-1234\n"}
	sink := &recordingSink{}
	tr := NewViolationTrigger(30, time.Second, &fakeEncoder{}, rec, sink, newTestLogger(t))

	require.True(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
	tr.Wait()

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "KA-05-MN-1234", got[0].PlateNumber)
	assert.InDelta(t, 34.56, got[0].SpeedKmh, 1e-9)
	assert.Equal(t, 30.0, got[0].SpeedLimitKmh)
	assert.Equal(t, at(1200), got[0].Timestamp)
	assert.NotEmpty(t, got[0].Snapshot)
	assert.Empty(t, got[0].ID, "identity is assigned by the sink")
	assert.False(t, tr.Busy())
}

func TestViolationTrigger_SuppressesWhileAwaiting(t *testing.T) {
	rec := newGatedRecognizer("XY999", nil)
	sink := &recordingSink{}
	tr := NewViolationTrigger(30, time.Minute, &fakeEncoder{}, rec, sink, newTestLogger(t))
	ctx := context.Background()

	require.True(t, tr.OnEstimate(ctx, fastEstimate(), NewFrame(8, 8)))
	<-rec.started
	assert.True(t, tr.Busy())

	assert.False(t, tr.OnEstimate(ctx, fastEstimate(), NewFrame(8, 8)))
	assert.False(t, tr.OnEstimate(ctx, Estimate{Kmh: 90}, NewFrame(8, 8)))
	assert.Equal(t, int32(1), rec.calls.Load())

	close(rec.release)
	tr.Wait()
	assert.False(t, tr.Busy())
	require.Len(t, sink.all(), 1)

	// slot is free again
	require.True(t, tr.OnEstimate(ctx, fastEstimate(), NewFrame(8, 8)))
	tr.Wait()
	assert.Equal(t, int32(2), rec.calls.Load())
	assert.Len(t, sink.all(), 2)
}

func TestViolationTrigger_RecognitionOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		plate string
		err   error
		want  string
	}{
		{"plate", "MH-12-RT-9988", nil, "MH-12-RT-9988"},
		{"empty answer", "   ", nil, recognition.PlateUnknown},
		{"no plate", "", recognition.ErrNoPlate, recognition.PlateUnknown},
		{"failure", "", errBoom, recognition.PlateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			tr := NewViolationTrigger(30, time.Second, &fakeEncoder{},
				&instantRecognizer{plate: tt.plate, err: tt.err}, sink, newTestLogger(t))

			require.True(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
			tr.Wait()

			got := sink.all()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].PlateNumber)
			assert.False(t, tr.Busy())
		})
	}
}

func TestViolationTrigger_TimeoutReleasesSlot(t *testing.T) {
	rec := newGatedRecognizer("never", nil)
	sink := &recordingSink{}
	tr := NewViolationTrigger(30, 20*time.Millisecond, &fakeEncoder{}, rec, sink, newTestLogger(t))

	require.True(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
	tr.Wait()

	assert.False(t, tr.Busy())
	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, recognition.PlateError, got[0].PlateNumber)
}

func TestViolationTrigger_EncodeFailure(t *testing.T) {
	rec := &instantRecognizer{plate: "AB123"}
	sink := &recordingSink{}
	tr := NewViolationTrigger(30, time.Second, &fakeEncoder{err: errBoom}, rec, sink, newTestLogger(t))

	assert.False(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
	tr.Wait()

	assert.False(t, tr.Busy())
	assert.Zero(t, rec.calls.Load())
	assert.Empty(t, sink.all())
}

func TestViolationTrigger_ResetCancelsPendingCall(t *testing.T) {
	rec := newGatedRecognizer("late", nil)
	sink := &recordingSink{}
	tr := NewViolationTrigger(30, time.Minute, &fakeEncoder{}, rec, sink, newTestLogger(t))

	require.True(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
	<-rec.started

	tr.Reset()
	assert.False(t, tr.Busy())

	tr.Wait()
	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, recognition.PlateError, got[0].PlateNumber)
	assert.False(t, tr.Busy())
}

func TestViolationTrigger_LateCallDoesNotReleaseNewReservation(t *testing.T) {
	first := newGatedRecognizer("first", nil)
	sink := &recordingSink{}
	tr := NewViolationTrigger(30, time.Minute, &fakeEncoder{}, first, sink, newTestLogger(t))

	require.True(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
	<-first.started
	tr.Reset()

	second := newGatedRecognizer("second", nil)
	tr.recognizer = second
	require.True(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
	<-second.started

	// the first call settles while the second is still pending
	close(first.release)
	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, tr.Busy())
	assert.False(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))

	close(second.release)
	tr.Wait()
	assert.False(t, tr.Busy())
	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, "SECOND", got[1].PlateNumber)
}

func TestViolationTrigger_SinkErrorStillReleases(t *testing.T) {
	sink := &recordingSink{err: errBoom}
	tr := NewViolationTrigger(30, time.Second, &fakeEncoder{}, &instantRecognizer{plate: "AB123"}, sink, newTestLogger(t))

	require.True(t, tr.OnEstimate(context.Background(), fastEstimate(), NewFrame(8, 8)))
	tr.Wait()
	assert.False(t, tr.Busy())
}
