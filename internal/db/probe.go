package db

import "context"

// Pinger is implemented by every store in this package.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreProbe adapts a store to the health check probe interface.
type StoreProbe struct {
	name   string
	pinger Pinger
}

// NewStoreProbe names the probe after the store driver.
func NewStoreProbe(name string, p Pinger) *StoreProbe {
	return &StoreProbe{name: name, pinger: p}
}

func (p *StoreProbe) Name() string { return p.name }

func (p *StoreProbe) Check(ctx context.Context) error {
	return p.pinger.Ping(ctx)
}
