// Package main is moviesctl, the operator CLI for the movie collection
// service's account store.
package main

import (
	"os"
	"time"

	"moviesvc/internal/config"
)

func main() {
	cli := &cli{
		loadConfig: config.LoadConfig,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if err := newRootCmd(cli).Execute(); err != nil {
		os.Exit(1)
	}
}
