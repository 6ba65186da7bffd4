// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/deck-engine/pkg/types"
)

func snapshot(id string, status types.Status, updatedAt time.Time) types.Presentation {
	return types.Presentation{ID: id, OwnerID: "alice", Status: status, UpdatedAt: updatedAt}
}

// sseHandler writes scripted frames to an events request.
func sseHandler(t *testing.T, frames func(r *http.Request, w http.ResponseWriter, f http.Flusher)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Error("test server does not support flushing")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\n")
		f.Flush()
		frames(r, w, f)
	}
}

func writeData(w http.ResponseWriter, f http.Flusher, v any) {
	payload, _ := json.Marshal(v)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	f.Flush()
}

func writeEvent(w http.ResponseWriter, f http.Flusher, name string, v any) {
	payload, _ := json.Marshal(v)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	f.Flush()
}

func collect(t *testing.T, sub *Subscription) []types.Presentation {
	t.Helper()
	var got []types.Presentation
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p, ok := <-sub.Updates:
			if !ok {
				return got
			}
			got = append(got, p)
		case <-timeout:
			t.Fatal("subscription did not end")
		}
	}
}

func TestSubscriptionStreamsToTerminal(t *testing.T) {
	base := time.Now().UTC()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/presentations/p1/events", sseHandler(t, func(r *http.Request, w http.ResponseWriter, f http.Flusher) {
		writeData(w, f, snapshot("p1", types.StatusGenerating, base))
		writeData(w, f, snapshot("p1", types.StatusCompleted, base.Add(time.Second)))
		writeEvent(w, f, "complete", map[string]string{"status": "completed"})
	}))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, Owner: "alice"}
	sub := c.Subscribe(context.Background(), "p1")
	got := collect(t, sub)

	if len(got) != 2 {
		t.Fatalf("got %d updates, want 2", len(got))
	}
	if got[0].Status != types.StatusGenerating || got[1].Status != types.StatusCompleted {
		t.Errorf("statuses = %q, %q", got[0].Status, got[1].Status)
	}
}

func TestSubscriptionDropsStaleSnapshots(t *testing.T) {
	base := time.Now().UTC()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/presentations/p1/events", sseHandler(t, func(r *http.Request, w http.ResponseWriter, f http.Flusher) {
		writeData(w, f, snapshot("p1", types.StatusGenerating, base.Add(2*time.Second)))
		// An out-of-order write from a slower path; must not surface.
		writeData(w, f, snapshot("p1", types.StatusGenerating, base))
		writeData(w, f, snapshot("p1", types.StatusCompleted, base.Add(3*time.Second)))
	}))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	got := collect(t, c.Subscribe(context.Background(), "p1"))

	if len(got) != 2 {
		t.Fatalf("got %d updates, want the stale snapshot dropped: %+v", len(got), got)
	}
	if !got[0].UpdatedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("first update = %v", got[0].UpdatedAt)
	}
}

func TestSubscriptionFallsBackToPolling(t *testing.T) {
	base := time.Now().UTC()
	var polls int
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/presentations/p1/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no streaming here", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /api/presentations/p1", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		n := polls
		mu.Unlock()
		status := types.StatusGenerating
		if n >= 3 {
			status = types.StatusCompleted
		}
		json.NewEncoder(w).Encode(snapshot("p1", status, base.Add(time.Duration(n)*time.Second)))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, PollInterval: 10 * time.Millisecond}
	got := collect(t, c.Subscribe(context.Background(), "p1"))

	if len(got) < 2 {
		t.Fatalf("got %d updates over polling, want at least 2", len(got))
	}
	if got[len(got)-1].Status != types.StatusCompleted {
		t.Errorf("final status = %q", got[len(got)-1].Status)
	}
}

func TestSubscriptionEndsOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/presentations/p1/events", sseHandler(t, func(r *http.Request, w http.ResponseWriter, f http.Flusher) {
		writeEvent(w, f, "error", map[string]string{"message": "presentation not found"})
	}))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	got := collect(t, c.Subscribe(context.Background(), "p1"))
	if len(got) != 0 {
		t.Errorf("got %d updates from an error-only stream", len(got))
	}
}

func TestSubscriptionStop(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/presentations/p1/events", sseHandler(t, func(r *http.Request, w http.ResponseWriter, f http.Flusher) {
		writeData(w, f, snapshot("p1", types.StatusGenerating, time.Now()))
		<-release
	}))
	ts := httptest.NewServer(mux)
	defer ts.Close()
	defer close(release)

	c := &Client{BaseURL: ts.URL}
	sub := c.Subscribe(context.Background(), "p1")

	select {
	case <-sub.Updates:
	case <-time.After(5 * time.Second):
		t.Fatal("no first update")
	}

	done := make(chan struct{})
	go func() { sub.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestWatcherReconciliation(t *testing.T) {
	mux := http.NewServeMux()
	hold := make(chan struct{})
	defer close(hold)
	for _, id := range []string{"a", "b"} {
		mux.HandleFunc("GET /api/presentations/"+id+"/events", sseHandler(t, func(r *http.Request, w http.ResponseWriter, f http.Flusher) {
			writeData(w, f, snapshot(id, types.StatusGenerating, time.Now()))
			select {
			case <-hold:
			case <-r.Context().Done():
			}
		}))
	}
	// "c" completes immediately.
	mux.HandleFunc("GET /api/presentations/c/events", sseHandler(t, func(r *http.Request, w http.ResponseWriter, f http.Flusher) {
		writeData(w, f, snapshot("c", types.StatusCompleted, time.Now()))
	}))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	var mu sync.Mutex
	seen := make(map[string]int)
	w := &Watcher{
		Client: &Client{BaseURL: ts.URL},
		OnUpdate: func(p types.Presentation) {
			mu.Lock()
			seen[p.ID]++
			mu.Unlock()
		},
	}
	defer w.Close()

	ctx := context.Background()
	w.Sync(ctx, []string{"a", "b", "c"})

	// Every id delivers at least one snapshot.
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		ok := seen["a"] > 0 && seen["b"] > 0 && seen["c"] > 0
		mu.Unlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("updates missing: %v", seen)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// "c" reached terminal and removed itself; "a" and "b" stay.
	deadline = time.Now().Add(5 * time.Second)
	for {
		ids := w.Watching()
		if len(ids) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("still watching %v, want only the generating ids", ids)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Dropping "a" from the sync list tears down exactly "a".
	w.Sync(ctx, []string{"b"})
	ids := w.Watching()
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("watching %v after sync, want [b]", ids)
	}
}
