package sim

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoStep returns a behavior that runs first on its initial resumption and
// then on every later one.
func twoStep(first func(p *Process), then func(p *Process, w Wake)) BehaviorFunc {
	started := false
	return func(p *Process, w Wake) {
		if !started {
			started = true
			first(p)
			return
		}
		then(p, w)
	}
}

func TestEngine_HoldOrdersByTimeThenSchedulingOrder(t *testing.T) {
	e := NewEngine()
	var order []string
	for _, h := range []struct {
		name  string
		delay float64
	}{{"late", 5}, {"early", 3}, {"tie", 3}} {
		e.Spawn(h.name, twoStep(
			func(p *Process) { p.Hold(h.delay) },
			func(p *Process, _ Wake) {
				order = append(order, h.name)
				p.Exit()
			}))
	}

	e.Run(100)

	assert.Equal(t, []string{"early", "tie", "late"}, order)
	assert.Equal(t, 100.0, e.Now(), "clock parks at the horizon once idle")
	assert.False(t, e.Pending())
}

func TestEngine_RunStopsAtHorizon(t *testing.T) {
	e := NewEngine()
	var resumedAt float64
	e.Spawn("sleeper", twoStep(
		func(p *Process) { p.Hold(10) },
		func(p *Process, w Wake) {
			resumedAt = w.Time
			p.Exit()
		}))

	e.Run(5)
	assert.Equal(t, 5.0, e.Now(), "clock parks at the horizon")
	assert.True(t, e.Pending())
	assert.Zero(t, resumedAt)

	e.Run(20)
	assert.Equal(t, 10.0, resumedAt)
}

func TestEngine_RunIdleAdvancesClockToHorizon(t *testing.T) {
	e := NewEngine()
	var resumedAt float64
	e.Spawn("short", twoStep(
		func(p *Process) { p.Hold(2) },
		func(p *Process, w Wake) {
			resumedAt = w.Time
			p.Exit()
		}))

	// WHEN the last wake-up is long before the horizon
	e.Run(7)

	// THEN the clock still ends at the horizon
	assert.Equal(t, 2.0, resumedAt)
	assert.Equal(t, 7.0, e.Now())
	assert.False(t, e.Pending())

	// AND an unbounded Step leaves it alone
	assert.False(t, e.Step())
	assert.Equal(t, 7.0, e.Now())
}

func TestEngine_DeferRunsAfterSameTickWakeups(t *testing.T) {
	e := NewEngine()
	var order []string
	e.Spawn("router", twoStep(
		func(p *Process) { p.Defer() },
		func(p *Process, _ Wake) {
			order = append(order, "router")
			p.Exit()
		}))
	e.Spawn("broker", twoStep(
		func(p *Process) { p.Hold(0) },
		func(p *Process, _ Wake) {
			order = append(order, "broker")
			p.Exit()
		}))

	e.Run(1)

	assert.Equal(t, []string{"broker", "router"}, order)
	assert.Equal(t, 1.0, e.Now())
}

func TestEngine_DeferWaitsForTimedWakeupsAtSameTime(t *testing.T) {
	e := NewEngine()
	var order []string
	step := 0
	e.Spawn("router", BehaviorFunc(func(p *Process, _ Wake) {
		step++
		switch step {
		case 1:
			p.Hold(2)
		case 2:
			p.Defer()
		default:
			order = append(order, "router")
			p.Exit()
		}
	}))
	e.Spawn("late", twoStep(
		func(p *Process) { p.Hold(2) },
		func(p *Process, _ Wake) {
			order = append(order, "late")
			p.Exit()
		}))

	e.Run(5)

	assert.Equal(t, []string{"late", "router"}, order)
	assert.Equal(t, 5.0, e.Now())
}

func TestEngine_ReturningWithoutSuspendingPanics(t *testing.T) {
	e := NewEngine()
	e.Spawn("lazy", BehaviorFunc(func(*Process, Wake) {}))
	assert.PanicsWithValue(t, `process "lazy" returned control without suspending`, func() { e.Run(1) })
}

func TestEngine_HooksSeeEveryResume(t *testing.T) {
	e := NewEngine()
	before, after := 0, 0
	e.AcceptHook(HookFunc(func(ctx HookCtx) {
		switch ctx.Pos {
		case HookPosBeforeResume:
			before++
		case HookPosAfterResume:
			after++
		}
	}))
	e.Spawn("p", twoStep(func(p *Process) { p.Hold(1) }, func(p *Process, _ Wake) { p.Exit() }))

	e.Run(10)

	assert.Equal(t, 2, before)
	assert.Equal(t, 2, after)
	assert.Equal(t, uint64(2), e.Resumes())
}

func TestEngine_ResetRewindsClock(t *testing.T) {
	e := NewEngine()
	e.Spawn("p", twoStep(func(p *Process) { p.Hold(3) }, func(p *Process, _ Wake) { p.Exit() }))
	e.Run(10)
	require.Equal(t, 10.0, e.Now())

	e.Reset()

	assert.Zero(t, e.Now())
	assert.Empty(t, e.Processes())
	assert.False(t, e.Pending())
}

func TestEvent_WaitersResumeInFiringTick(t *testing.T) {
	// Random fire times: every waiter observes value == resume time == fire time.
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		e := NewEngine()
		fireAt := float64(rng.Intn(1000)) / 10
		ev := e.NewEvent("signal")
		var resumedAt []float64
		for i := 0; i < 3; i++ {
			e.Spawn(fmt.Sprintf("waiter%d", i), twoStep(
				func(p *Process) { p.Wait(ev) },
				func(p *Process, w Wake) {
					p.AssertInstant(w.Event)
					resumedAt = append(resumedAt, w.Time)
					p.Exit()
				}))
		}
		e.Spawn("firer", twoStep(
			func(p *Process) { p.Hold(fireAt) },
			func(p *Process, _ Wake) {
				ev.Succeed(p.Now())
				p.Exit()
			}))

		e.Run(1000)

		require.Len(t, resumedAt, 3, "trial %d", trial)
		for _, at := range resumedAt {
			assert.Equal(t, fireAt, at, "trial %d", trial)
		}
		assert.Equal(t, fireAt, ev.Value())
	}
}

func TestEvent_StaleValueFailsInstantAssertion(t *testing.T) {
	e := NewEngine()
	ev := e.NewEvent("isCalled")
	e.Spawn("broker", twoStep(
		func(p *Process) { p.Wait(ev) },
		func(p *Process, w Wake) {
			p.AssertInstant(w.Event)
			p.Exit()
		}))
	e.Spawn("victim", twoStep(
		func(p *Process) { p.Hold(5) },
		func(p *Process, _ Wake) {
			ev.Succeed(p.Now() - 1)
			p.Exit()
		}))

	assert.Panics(t, func() { e.Run(10) })
}

func TestEvent_FiringTwicePanics(t *testing.T) {
	e := NewEngine()
	ev := e.NewEvent("once")
	ev.Succeed(0)
	assert.PanicsWithValue(t, `event "once" fired twice without replacement`, func() { ev.Succeed(0) })
}

func TestEvent_FiredBeforeWaitDeliversInSameTick(t *testing.T) {
	e := NewEngine()
	ev := e.NewEvent("early")
	delivered := false
	e.Spawn("firer", BehaviorFunc(func(p *Process, _ Wake) {
		ev.Succeed(p.Now())
		p.Exit()
	}))
	e.Spawn("waiter", twoStep(
		func(p *Process) { p.Wait(ev) },
		func(p *Process, w Wake) {
			p.AssertInstant(w.Event)
			delivered = true
			p.Exit()
		}))

	e.Run(1)

	assert.True(t, delivered)
}

func TestEvent_WaitingInLaterTickPanics(t *testing.T) {
	e := NewEngine()
	ev := e.NewEvent("stale")
	e.Spawn("firer", BehaviorFunc(func(p *Process, _ Wake) {
		ev.Succeed(p.Now())
		p.Exit()
	}))
	e.Spawn("late", twoStep(
		func(p *Process) { p.Hold(2) },
		func(p *Process, w Wake) {
			if w.Event == nil {
				p.Wait(ev)
				return
			}
			p.Exit()
		}))

	assert.Panics(t, func() { e.Run(10) })
}

func TestEvent_WaitingOnConsumedEventPanics(t *testing.T) {
	e := NewEngine()
	ev := e.NewEvent("consumed")
	e.Spawn("first", twoStep(func(p *Process) { p.Wait(ev) }, func(p *Process, _ Wake) { p.Exit() }))
	e.Spawn("firer", twoStep(
		func(p *Process) { p.Hold(1) },
		func(p *Process, _ Wake) {
			ev.Succeed(p.Now())
			p.Exit()
		}))
	e.Spawn("second", twoStep(
		func(p *Process) { p.Hold(2) },
		func(p *Process, _ Wake) {
			p.Wait(ev)
		}))

	assert.PanicsWithValue(t, `process "second" waits on consumed event "consumed"`, func() { e.Run(10) })
}
