package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/sensor-uplink/internal/sensor"
	"github.com/i474232898/sensor-uplink/internal/store"
	"github.com/i474232898/sensor-uplink/internal/uplink"
)

// fakeClock is advanced explicitly by the fakes below.
type fakeClock struct {
	t      time.Time
	events []string
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) logf(format string, args ...any) {
	c.events = append(c.events, fmt.Sprintf("%s %s", c.t.Format("15:04:05.000"), fmt.Sprintf(format, args...)))
}

type fakeSensor struct {
	clock    *fakeClock
	readTime time.Duration
	m        sensor.Measurement
	err      error
	reads    int
	startAt  []time.Time
}

func (s *fakeSensor) Name() string { return "fake" }

func (s *fakeSensor) Read(ctx context.Context) (sensor.Measurement, error) {
	s.reads++
	s.startAt = append(s.startAt, s.clock.t)
	s.clock.logf("read")
	s.clock.t = s.clock.t.Add(s.readTime)
	return s.m, s.err
}

type fakeUplink struct {
	clock    *fakeClock
	sendTime time.Duration
	outcomes []uplink.Outcome
	err      error
	payloads [][]byte
	endAt    []time.Time
}

func (u *fakeUplink) Send(ctx context.Context, payload []byte) (uplink.Outcome, error) {
	u.payloads = append(u.payloads, payload)
	u.clock.logf("send")
	u.clock.t = u.clock.t.Add(u.sendTime)
	u.endAt = append(u.endAt, u.clock.t)
	if u.err != nil {
		return uplink.Outcome{}, u.err
	}
	o := u.outcomes[(len(u.payloads)-1)%len(u.outcomes)]
	return o, nil
}

type fixture struct {
	clock   *fakeClock
	sensor  *fakeSensor
	uplink  *fakeUplink
	tracker *store.StatusTracker
	out     *bytes.Buffer
	loop    *Loop
	sleeps  []time.Duration
}

// newFixture builds a loop whose sleep cancels the context after maxIters
// iterations.
func newFixture(t *testing.T, maxIters int) (*fixture, context.Context) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0).UTC()}
	f := &fixture{
		clock:   clock,
		sensor:  &fakeSensor{clock: clock, readTime: 150 * time.Millisecond, m: sensor.Measurement{Humidity: 48.2, Temperature: 23.5}},
		uplink:  &fakeUplink{clock: clock, sendTime: 700 * time.Millisecond, outcomes: []uplink.Outcome{{Class: uplink.ClassSuccess, StatusCode: 200, Status: "200 OK"}}},
		tracker: store.NewStatusTracker(clock.now),
		out:     &bytes.Buffer{},
	}
	f.loop = New(Config{LocationID: "45203", DeviceID: "sensor", Interval: 5000 * time.Millisecond},
		f.sensor, f.uplink, f.tracker, f.out, zap.NewNop())
	f.loop.now = clock.now

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.loop.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		clock.logf("sleep %s", d)
		clock.t = clock.t.Add(d)
		if len(f.sleeps) >= maxIters {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	return f, ctx
}

func TestRun_IterationOrderAndSpacing(t *testing.T) {
	f, ctx := newFixture(t, 3)

	require.NoError(t, f.loop.Run(ctx))

	require.Equal(t, 3, f.sensor.reads)
	require.Len(t, f.uplink.payloads, 3)
	require.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, f.sleeps)

	for i := 1; i < len(f.sensor.startAt); i++ {
		gap := f.sensor.startAt[i].Sub(f.uplink.endAt[i-1])
		require.GreaterOrEqual(t, gap, 5000*time.Millisecond)
	}

	var steps []string
	for _, e := range f.clock.events {
		steps = append(steps, strings.SplitN(e, " ", 2)[1])
	}
	require.Equal(t, []string{
		"read", "send", "sleep 5s",
		"read", "send", "sleep 5s",
		"read", "send", "sleep 5s",
	}, steps)
}

func TestRun_PayloadAndConsole(t *testing.T) {
	f, ctx := newFixture(t, 1)

	require.NoError(t, f.loop.Run(ctx))

	require.Len(t, f.uplink.payloads, 1)
	var got map[string]any
	require.NoError(t, json.Unmarshal(f.uplink.payloads[0], &got))
	require.Equal(t, "45203", got["LocationId"])
	require.Equal(t, "sensor", got["DeviceId"])
	require.Equal(t, 23.5, got["Temperature"])
	require.Equal(t, 48.2, got["Humidity"])

	require.Equal(t, "relative humidity=48.2%; temperature=23.5C\nsuccess!\n", f.out.String())
}

func TestRun_TimestampNotBeforeRead(t *testing.T) {
	f, ctx := newFixture(t, 2)
	f.sensor.readTime = 2 * time.Second

	require.NoError(t, f.loop.Run(ctx))

	for i, p := range f.uplink.payloads {
		var rec struct{ EpochTime int64 }
		require.NoError(t, json.Unmarshal(p, &rec))
		require.GreaterOrEqual(t, rec.EpochTime, f.sensor.startAt[i].Unix())
		require.Equal(t, f.sensor.startAt[i].Add(2*time.Second).Unix(), rec.EpochTime)
	}
}

func TestRun_OutcomeLines(t *testing.T) {
	f, ctx := newFixture(t, 3)
	f.uplink.outcomes = []uplink.Outcome{
		{Class: uplink.ClassSuccess, StatusCode: 200, Status: "200 OK"},
		{Class: uplink.ClassServerError, StatusCode: 500, Status: "500 Internal Server Error"},
		{Class: uplink.ClassOther, StatusCode: 404, Status: "404 Not Found"},
	}

	require.NoError(t, f.loop.Run(ctx))

	out := f.out.String()
	require.Contains(t, out, "success!\n")
	require.Contains(t, out, "server error! Status: 500\n")
	require.Contains(t, out, "Something else happened. Status: 404\n")

	// Non-2xx answers neither stop the loop nor trigger a resend.
	require.Equal(t, 3, f.sensor.reads)
	require.Len(t, f.uplink.payloads, 3)

	snap := f.tracker.Snapshot()
	require.Equal(t, int64(3), snap.Readings)
	require.Equal(t, int64(1), snap.Succeeded)
	require.Equal(t, int64(1), snap.ServerErrors)
	require.Equal(t, int64(1), snap.Other)
}

func TestRun_TransportFailureIsFatal(t *testing.T) {
	f, ctx := newFixture(t, 10)
	f.uplink.err = fmt.Errorf("%w: connection refused", uplink.ErrTransport)

	err := f.loop.Run(ctx)
	require.ErrorIs(t, err, uplink.ErrTransport)
	require.Equal(t, 1, f.sensor.reads)
	require.Len(t, f.uplink.payloads, 1)
	require.Empty(t, f.sleeps)
}

func TestRun_SensorFailureIsFatal(t *testing.T) {
	f, ctx := newFixture(t, 10)
	f.sensor.err = fmt.Errorf("%w: timeout", sensor.ErrReadFailed)

	err := f.loop.Run(ctx)
	require.ErrorIs(t, err, sensor.ErrReadFailed)
	require.Empty(t, f.uplink.payloads)
	require.Empty(t, f.out.String())
	require.Empty(t, f.sleeps)
}

func TestSleepContext(t *testing.T) {
	start := time.Now()
	require.NoError(t, SleepContext(context.Background(), 20*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
