package clock

import "time"

// Clock abstracts wall-clock reads and sleeps so timed logic can be tested
// without real delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Real returns a Clock backed by the system clock.
func Real() Clock {
	return realClock{}
}

// Fake is a manually advanced clock for tests. Sleep advances the clock
// immediately and records the requested duration.
type Fake struct {
	Current time.Time
	Slept   []time.Duration
}

// NewFake creates a Fake clock starting at t.
func NewFake(t time.Time) *Fake {
	return &Fake{Current: t}
}

func (f *Fake) Now() time.Time { return f.Current }

func (f *Fake) Sleep(d time.Duration) {
	if d > 0 {
		f.Current = f.Current.Add(d)
	}
	f.Slept = append(f.Slept, d)
}

// TotalSlept sums every recorded sleep.
func (f *Fake) TotalSlept() time.Duration {
	var total time.Duration
	for _, d := range f.Slept {
		total += d
	}
	return total
}
