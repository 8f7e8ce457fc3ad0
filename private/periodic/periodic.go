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

// Package periodic provides a mechanism to run tasks periodically.
package periodic

import (
	"context"
	"time"

	"github.com/fnrg-nfv/click/pkg/log"
	"github.com/fnrg-nfv/click/pkg/metrics"
)

// Event type strings used as metric label values.
const (
	// EventStop is the label value for stop events.
	EventStop = "stop"
	// EventKill is the label value for kill events.
	EventKill = "kill"
	// EventTrigger is the label value for trigger events.
	EventTrigger = "triggered"
)

// Metrics defines the metrics exposed by a Runner. Fields that are nil are
// simply not reported.
type Metrics struct {
	// Events returns the counter for the given event type.
	Events func(eventType string) metrics.Counter
	// Runtime is set to the duration of the last run in seconds.
	Runtime metrics.Gauge
	// StartTime is set to the start time of the last run, in seconds since
	// the unix epoch.
	StartTime metrics.Gauge
	// Period is set to the period of the task in seconds.
	Period metrics.Gauge
}

func (m *Metrics) event(eventType string) metrics.Counter {
	if m == nil || m.Events == nil {
		return nil
	}
	return m.Events(eventType)
}

func (m *Metrics) runtime() metrics.Gauge {
	if m == nil {
		return nil
	}
	return m.Runtime
}

func (m *Metrics) startTime() metrics.Gauge {
	if m == nil {
		return nil
	}
	return m.StartTime
}

func (m *Metrics) period() metrics.Gauge {
	if m == nil {
		return nil
	}
	return m.Period
}

// Ticker interface to improve testability of this periodic task code.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type defaultTicker struct {
	*time.Ticker
}

func (t *defaultTicker) Chan() <-chan time.Time {
	return t.C
}

// NewTicker returns a new Ticker with time.Ticker as implementation.
func NewTicker(d time.Duration) Ticker {
	return &defaultTicker{
		Ticker: time.NewTicker(d),
	}
}

// Task is a task that has to be periodically executed.
type Task interface {
	// Run executes the task once, it should return within the context's
	// timeout.
	Run(context.Context)
	// Name returns the task's name. Successive calls must return the same
	// value.
	Name() string
}

// Runner runs a task periodically.
type Runner struct {
	task         Task
	ticker       Ticker
	period       time.Duration
	timeout      time.Duration
	stop         chan struct{}
	loopFinished chan struct{}
	ctx          context.Context
	cancelF      context.CancelFunc
	trigger      chan struct{}
	metrics      *Metrics
}

// Start creates and starts a new Runner to run the given task periodically.
// The timeout is used for the context timeout of the task. The timeout can
// be larger than the period. That means if a task takes a long time it will
// be immediately retriggered.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, nil, period, timeout)
}

// StartWithMetrics is like Start, but the runner additionally reports task
// events and timings on the given metrics.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	ctx = log.CtxWith(ctx, log.New("task", task.Name()))
	runner := &Runner{
		task:         task,
		ticker:       NewTicker(period),
		period:       period,
		timeout:      timeout,
		stop:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		ctx:          ctx,
		cancelF:      cancelF,
		trigger:      make(chan struct{}),
		metrics:      m,
	}
	go func() {
		defer log.HandlePanic()
		runner.runLoop()
	}()
	return runner
}

// Stop stops the periodic execution of the Runner. If the task is currently
// running this method will block until it is done.
func (r *Runner) Stop() {
	r.ticker.Stop()
	close(r.stop)
	<-r.loopFinished
	metrics.CounterInc(r.metrics.event(EventStop))
}

// Kill is like Stop but it also cancels the context of the current running
// task.
func (r *Runner) Kill() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.cancelF()
	<-r.loopFinished
	metrics.CounterInc(r.metrics.event(EventKill))
}

// TriggerRun triggers the periodic task to run now. This does not impact the
// normal periodicity of this task. That means if the period is 5m and
// TriggerRun is called after 2m, the next regular execution will be in 3m.
//
// The method blocks until either the triggered run was started or the runner
// was stopped, in which case the triggered run will not be executed.
func (r *Runner) TriggerRun() {
	select {
	// Either we were stopped or we can put something in the trigger channel.
	case <-r.stop:
	case r.trigger <- struct{}{}:
		metrics.CounterInc(r.metrics.event(EventTrigger))
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()
	metrics.GaugeSet(r.metrics.period(), r.period.Seconds())
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.Chan():
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	select {
	// Make sure that the stop case is evaluated first, so that when we kill
	// and both channels are ready we always go into stop first.
	case <-r.stop:
		return
	default:
		ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
		defer cancelF()
		start := time.Now()
		metrics.GaugeSet(r.metrics.startTime(), float64(start.UnixNano()/1e9))
		r.task.Run(ctx)
		metrics.GaugeSet(r.metrics.runtime(), time.Since(start).Seconds())
	}
}
