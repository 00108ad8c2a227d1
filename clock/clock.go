// Package clock abstracts away the standard time package so that the
// update-check engine and the lock daemon's idle-expiry timer can be driven
// deterministically in tests.
package clock

import "time"

// Clock defines an interface for time-related operations.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time

	// Since returns the time elapsed since t (equivalent to Now().Sub(t)).
	Since(t time.Time) time.Duration

	// After waits for the duration to elapse and then sends the current time
	// on the returned channel.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that sends the time on its channel at the
	// given period.
	NewTicker(d time.Duration) Ticker

	// NewTimer creates a Timer that sends the current time on its channel
	// after at least duration d.
	NewTimer(d time.Duration) Timer

	// Sleep pauses the current goroutine for at least the duration d.
	Sleep(d time.Duration)
}

// Ticker is an interface wrapper around time.Ticker for mocking.
type Ticker interface {
	// Chan returns the channel on which ticks are delivered.
	Chan() <-chan time.Time

	// Stop turns off the ticker.
	Stop()

	// Reset stops the ticker and resets its period.
	Reset(d time.Duration)
}

// Timer is an interface wrapper around time.Timer for mocking.
type Timer interface {
	// Chan returns the channel on which the time will be delivered.
	Chan() <-chan time.Time

	// Stop prevents the Timer from firing.
	Stop() bool

	// Reset changes the timer to expire after duration d.
	Reset(d time.Duration) bool
}

// standardClock implements Clock using the standard library.
type standardClock struct{}

// New returns a Clock implementation based on Go's standard time package.
func New() Clock {
	return &standardClock{}
}

func (sc *standardClock) Now() time.Time { return time.Now() }

func (sc *standardClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (sc *standardClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (sc *standardClock) NewTicker(d time.Duration) Ticker {
	return &standardTicker{ticker: time.NewTicker(d)}
}

func (sc *standardClock) NewTimer(d time.Duration) Timer {
	return &standardTimer{timer: time.NewTimer(d)}
}

func (sc *standardClock) Sleep(d time.Duration) { time.Sleep(d) }

type standardTicker struct{ ticker *time.Ticker }

func (st *standardTicker) Chan() <-chan time.Time   { return st.ticker.C }
func (st *standardTicker) Stop()                    { st.ticker.Stop() }
func (st *standardTicker) Reset(d time.Duration)    { st.ticker.Reset(d) }

type standardTimer struct{ timer *time.Timer }

func (st *standardTimer) Chan() <-chan time.Time      { return st.timer.C }
func (st *standardTimer) Stop() bool                  { return st.timer.Stop() }
func (st *standardTimer) Reset(d time.Duration) bool  { return st.timer.Reset(d) }
