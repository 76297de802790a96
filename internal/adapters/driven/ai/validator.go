package ai

import (
	"context"
	"time"
)

// pingTimeout is the maximum time to wait for a provider to answer a ping.
const pingTimeout = 5 * time.Second

// Pinger is anything that can check its backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is the outcome of pinging one provider.
type Check struct {
	Name string
	Err  error
}

// OK reports whether the provider answered.
func (c Check) OK() bool {
	return c.Err == nil
}

// Validate pings each named provider with a bounded timeout.
// Checks are returned in the order of names.
func Validate(ctx context.Context, names []string, pingers []Pinger) []Check {
	checks := make([]Check, len(names))
	for i, name := range names {
		checks[i] = Check{Name: name, Err: ping(ctx, pingers[i])}
	}
	return checks
}

func ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}
