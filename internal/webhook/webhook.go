// Package webhook receives platform callbacks, hands them to the dispatcher
// and delivers the resulting envelopes.
//
// Both platforms expect a fast acknowledgement, so every handler verifies
// the request, answers 200 and dispatches in the background. Shutdown waits
// for that background work.
package webhook

import (
	"context"
	"sync"

	"github.com/garyellow/chatbot-go/internal/bot"
)

// Dispatcher is the part of bot.Dispatcher the transports use.
type Dispatcher interface {
	DispatchText(ctx context.Context, text string, caller bot.Caller) bot.Envelope
	DispatchAction(ctx context.Context, action bot.Action, caller bot.Caller) bot.Envelope
	DispatchEvent(ctx context.Context, ev bot.Event, caller bot.Caller) bot.Envelope
}

// maxBodyBytes caps the size of an accepted callback body.
const maxBodyBytes = 1 << 20

// inflight tracks background processing started by a handler.
type inflight struct {
	wg sync.WaitGroup
}

func (f *inflight) Go(fn func()) {
	f.wg.Go(fn)
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (f *inflight) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		f.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
