//go:build unix

package usecase

import (
	"context"
	"syscall"
	"testing"
	"time"

	"wickengine/internal/domain/models"
)

func processCPU(t *testing.T) time.Duration {
	t.Helper()
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		t.Fatalf("getrusage: %v", err)
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}

func TestRunIdlesAfterErrorChannelsClose(t *testing.T) {
	tradeErrs := make(chan error)
	close(tradeErrs)
	bookErrs := make(chan error)
	close(bookErrs)
	trades := &stubTradeStream{connected: true, trades: make(chan *models.Trade), errs: tradeErrs}
	books := &stubBookStream{books: make(chan *models.OrderBookSnapshot), errs: bookErrs}
	e := testEngineStreams(t, trades, books)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// Let the loop drain both closed channels, then watch process CPU over an
	// idle window. A closed channel left in the select would spin the loop.
	time.Sleep(50 * time.Millisecond)
	start := processCPU(t)
	time.Sleep(300 * time.Millisecond)
	if burned := processCPU(t) - start; burned > 150*time.Millisecond {
		t.Fatalf("idle run loop burned %v of CPU in a 300ms window", burned)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop on cancel")
	}
}
