// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package periodic_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fnrg-nfv/click/pkg/log"
	"github.com/fnrg-nfv/click/pkg/log/testlog"
	"github.com/fnrg-nfv/click/pkg/metrics"
	"github.com/fnrg-nfv/click/pkg/private/xtest"
	"github.com/fnrg-nfv/click/private/periodic"
)

// calibrator is a fake of the kind of task the runner carries in this
// repo: a controller that recalibrates a parameter every period.
type calibrator struct {
	logger log.Logger
	run    func(context.Context)
}

func (c *calibrator) Run(ctx context.Context) {
	c.logger.Debug("calibration tick")
	c.run(ctx)
}

func (c *calibrator) Name() string { return "calibrator" }

func testMetrics(extended bool) *periodic.Metrics {
	events := metrics.NewTestCounter()
	m := &periodic.Metrics{
		Events: func(s string) metrics.Counter {
			return events.With("event_type", s)
		},
	}
	if extended {
		m.Period = metrics.NewTestGauge()
		m.Runtime = metrics.NewTestGauge()
		m.StartTime = metrics.NewTestGauge()
	}
	return m
}

func eventCount(m *periodic.Metrics, event string) float64 {
	return metrics.CounterValue(m.Events(event))
}

func TestRunnerFiresPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := testMetrics(false)
	ticks := make(chan struct{})
	task := &calibrator{
		logger: testlog.NewLogger(t),
		run:    func(context.Context) { ticks <- struct{}{} },
	}
	const want = 5
	period := 20 * time.Millisecond
	r := periodic.StartWithMetrics(task, m, period, time.Hour)

	start := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < want; i++ {
			select {
			case <-ticks:
			case <-time.After(25 * period):
				panic(fmt.Sprintf("timed out waiting for run %d", i))
			}
		}
	}()
	xtest.AssertReadReturnsBefore(t, done, time.Second)
	assert.WithinDuration(t, start, time.Now(), time.Duration(want+2)*5*period)

	require.NoError(t, runWithTimeout(r.Stop, 2*time.Second))
	assert.Equal(t, float64(1), eventCount(m, periodic.EventStop))
	assert.Equal(t, float64(0), eventCount(m, periodic.EventKill))
	assert.Equal(t, float64(0), eventCount(m, periodic.EventTrigger))
}

func TestKillCancelsRunningTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := testMetrics(false)
	started := make(chan struct{})
	ctxErr := make(chan error, 1)
	period := 10 * time.Millisecond
	task := &calibrator{
		logger: testlog.NewLogger(t),
		run: func(ctx context.Context) {
			close(started)
			// Stall until Kill cancels the context.
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
				t.Error("task context was not canceled")
			}
			ctxErr <- ctx.Err()
		},
	}
	r := periodic.StartWithMetrics(task, m, period, time.Hour)

	xtest.AssertReadReturnsBefore(t, started, time.Second)
	require.NoError(t, runWithTimeout(r.Kill, time.Second))

	select {
	case err := <-ctxErr:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the task to observe cancellation")
	}
	assert.Equal(t, float64(0), eventCount(m, periodic.EventStop))
	assert.Equal(t, float64(1), eventCount(m, periodic.EventKill))
}

func TestNoRunAfterKill(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := testMetrics(true)
	ticks := make(chan struct{}, 64)
	task := &calibrator{
		logger: testlog.NewLogger(t),
		run:    func(context.Context) { ticks <- struct{}{} },
	}
	period := 10 * time.Millisecond
	startTime := time.Now()
	r := periodic.StartWithMetrics(task, m, period, time.Hour)

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the first run")
	}
	require.NoError(t, runWithTimeout(r.Kill, time.Second))
	time.Sleep(2 * period)
	assert.Empty(t, ticks, "no further runs after Kill")

	assert.Equal(t, period.Seconds(), metrics.GaugeValue(m.Period))
	last := metrics.GaugeValue(m.StartTime)
	assert.LessOrEqual(t, float64(startTime.UnixNano()/1e9), last)
	assert.GreaterOrEqual(t, float64(time.Now().UnixNano()/1e9), last)
}

func TestTriggerRunsImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := testMetrics(false)
	ticks := make(chan struct{}, 64)
	task := &calibrator{
		logger: testlog.NewLogger(t),
		run:    func(context.Context) { ticks <- struct{}{} },
	}
	// Long period: every run beyond the first must come from TriggerRun.
	r := periodic.StartWithMetrics(task, m, time.Hour, time.Hour)
	defer r.Kill()

	const want = 10
	for i := 0; i < want; i++ {
		require.NoError(t, runWithTimeout(r.TriggerRun, time.Second))
	}
	deadline := time.After(time.Second)
	for i := 0; i < want; i++ {
		select {
		case <-ticks:
		case <-deadline:
			t.Fatalf("saw %d of %d triggered runs", i, want)
		}
	}
	assert.Equal(t, float64(want), eventCount(m, periodic.EventTrigger))
}

func TestTriggerAfterStopIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := testMetrics(false)
	ticks := make(chan struct{}, 64)
	task := &calibrator{
		logger: testlog.NewLogger(t),
		run:    func(context.Context) { ticks <- struct{}{} },
	}
	r := periodic.StartWithMetrics(task, m, time.Hour, time.Hour)
	require.NoError(t, runWithTimeout(r.Stop, time.Second))

	// Must return without blocking and without scheduling a run.
	require.NoError(t, runWithTimeout(r.TriggerRun, time.Second))
	assert.Empty(t, ticks)
	assert.Equal(t, float64(0), eventCount(m, periodic.EventTrigger))
}

func runWithTimeout(f func(), d time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	select {
	case <-done:
		return nil
	case <-time.After(d):
		return fmt.Errorf("timed out after %v", d)
	}
}
