// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package status

import (
	"context"
	"sync"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Watcher maintains one subscription per watched presentation id. Sync
// reconciles the subscription set against the caller's list of in-flight
// ids: new ids gain a subscription, departed ids lose theirs, the rest
// are left alone.
type Watcher struct {
	Client *Client

	// OnUpdate receives every snapshot from every subscription. Calls
	// may interleave across ids but are sequential per id.
	OnUpdate func(types.Presentation)

	mu   sync.Mutex
	subs map[string]*Subscription
}

// Sync reconciles the watched set to ids.
func (w *Watcher) Sync(ctx context.Context, ids []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.subs == nil {
		w.subs = make(map[string]*Subscription)
	}

	for id, sub := range w.subs {
		if !want[id] {
			sub.Stop()
			delete(w.subs, id)
		}
	}

	for id := range want {
		if _, ok := w.subs[id]; ok {
			continue
		}
		sub := w.Client.Subscribe(ctx, id)
		w.subs[id] = sub
		go w.drain(id, sub)
	}
}

// drain forwards a subscription's updates and removes it from the
// watched set once it ends, so a terminal presentation cannot leak a
// subscription past Sync.
func (w *Watcher) drain(id string, sub *Subscription) {
	for p := range sub.Updates {
		if w.OnUpdate != nil {
			w.OnUpdate(p)
		}
	}

	w.mu.Lock()
	if w.subs[id] == sub {
		delete(w.subs, id)
	}
	w.mu.Unlock()
}

// Watching lists the currently subscribed ids.
func (w *Watcher) Watching() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.subs))
	for id := range w.subs {
		out = append(out, id)
	}
	return out
}

// Close stops every subscription.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, sub := range w.subs {
		sub.Stop()
		delete(w.subs, id)
	}
}
