// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// sseMessage is one parsed server-sent event.
type sseMessage struct {
	event string
	data  string
}

// readSSE consumes the whole stream (the handlers close it themselves).
func readSSE(t *testing.T, body io.Reader) []sseMessage {
	t.Helper()
	var msgs []sseMessage
	var cur sseMessage
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if cur.data != "" || cur.event != "" {
				msgs = append(msgs, cur)
			}
			cur = sseMessage{}
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data += strings.TrimPrefix(line, "data: ")
		case strings.HasPrefix(line, ":"):
			// comment; the handshake is asserted separately
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	return msgs
}

func TestPresentationEventsStreamToCompletion(t *testing.T) {
	h, st, _ := newTestHandlers(nil)
	ts := httptest.NewServer(NewServer(h).Handler)
	defer ts.Close()

	p, err := st.CreatePresentation(context.Background(), types.Presentation{
		OwnerID: "alice",
		Status:  types.StatusGenerating,
	})
	if err != nil {
		t.Fatalf("CreatePresentation: %v", err)
	}

	// Complete the record shortly after the subscriber connects.
	go func() {
		time.Sleep(50 * time.Millisecond)
		cur, err := st.GetPresentation(context.Background(), p.ID, "")
		if err != nil {
			return
		}
		st.CompleteGeneration(context.Background(), p.ID, cur.Version,
			[]types.Slide{{Index: 0, Title: "T", Body: "b"}}, types.TokenUsage{Total: 7})
	}()

	resp, err := http.Get(ts.URL + "/api/presentations/" + p.ID + "/events?owner=alice")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if !strings.HasPrefix(string(raw), ": connected\n\n") {
		t.Error("stream did not open with the connected comment")
	}

	msgs := readSSE(t, strings.NewReader(string(raw)))
	if len(msgs) < 2 {
		t.Fatalf("got %d events, want at least a snapshot and complete", len(msgs))
	}

	// Every unnamed data event is a full presentation snapshot; the
	// status sequence never moves backwards.
	sawGenerating := false
	lastStatus := types.StatusGenerating
	for _, m := range msgs[:len(msgs)-1] {
		if m.event != "" {
			continue
		}
		var snap types.Presentation
		if err := json.Unmarshal([]byte(m.data), &snap); err != nil {
			t.Fatalf("snapshot does not parse: %v", err)
		}
		if snap.Status == types.StatusGenerating {
			sawGenerating = true
			if lastStatus.Terminal() {
				t.Error("status moved backwards from terminal to generating")
			}
		}
		lastStatus = snap.Status
	}
	if !sawGenerating {
		t.Error("no generating snapshot observed")
	}
	if lastStatus != types.StatusCompleted {
		t.Errorf("final snapshot status = %q", lastStatus)
	}

	last := msgs[len(msgs)-1]
	if last.event != "complete" || !strings.Contains(last.data, "completed") {
		t.Errorf("final event = %+v, want complete{status}", last)
	}
}

func TestPresentationEventsNotFound(t *testing.T) {
	h, _, _ := newTestHandlers(nil)
	ts := httptest.NewServer(NewServer(h).Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/presentations/nope/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	msgs := readSSE(t, resp.Body)
	if len(msgs) != 1 || msgs[0].event != "error" {
		t.Fatalf("events = %+v, want a single error event", msgs)
	}
	if !strings.Contains(msgs[0].data, "not found") {
		t.Errorf("error payload = %q", msgs[0].data)
	}
}

// failingReadStore reports every presentation read as broken.
type failingReadStore struct {
	store.Store
}

func (failingReadStore) GetPresentation(context.Context, string, string) (types.Presentation, error) {
	return types.Presentation{}, errors.New("disk on fire")
}

func TestPresentationEventsReadFailure(t *testing.T) {
	h, st, _ := newTestHandlers(nil)
	h.Store = failingReadStore{Store: st}
	ts := httptest.NewServer(NewServer(h).Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/presentations/some-id/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	msgs := readSSE(t, resp.Body)
	if len(msgs) != 1 || msgs[0].event != "error" {
		t.Fatalf("events = %+v, want a single error event", msgs)
	}
	if strings.Contains(msgs[0].data, "not found") {
		t.Errorf("error payload = %q, a transient read failure must not claim the record is missing", msgs[0].data)
	}
	if !strings.Contains(msgs[0].data, "could not be read") {
		t.Errorf("error payload = %q", msgs[0].data)
	}
}

func TestPresentationEventsClientDisconnect(t *testing.T) {
	h, st, _ := newTestHandlers(nil)
	ts := httptest.NewServer(NewServer(h).Handler)
	defer ts.Close()

	p, _ := st.CreatePresentation(context.Background(), types.Presentation{
		OwnerID: "alice",
		Status:  types.StatusGenerating,
	})

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		ts.URL+"/api/presentations/"+p.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	// Read the handshake, then walk away. The handler must notice and
	// return; ts.Close() below would hang on a leaked handler.
	buf := make([]byte, 16)
	if _, err := resp.Body.Read(buf); err != nil {
		t.Fatalf("reading handshake: %v", err)
	}
	cancel()
}

func TestOutlineStreamEndpoint(t *testing.T) {
	mock := &completion.Mock{
		Responses: []completion.Result{
			{Text: `{"valid": true, "text": "a concise topic"}`},
			{Text: "## Only Slide\n- bullet\n"},
		},
		ChunkSize: 6,
	}
	h, st, _ := newTestHandlers(mock)
	ts := httptest.NewServer(NewServer(h).Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/outline/stream", "application/json",
		strings.NewReader(`{"prompt": "a deck about topic", "ownerId": "alice"}`))
	if err != nil {
		t.Fatalf("POST outline/stream: %v", err)
	}
	defer resp.Body.Close()

	msgs := readSSE(t, resp.Body)

	var seq []types.StreamEventType
	var draftID string
	for _, m := range msgs {
		var ev types.StreamEvent
		if err := json.Unmarshal([]byte(m.data), &ev); err != nil {
			t.Fatalf("event does not parse: %v (%q)", err, m.data)
		}
		seq = append(seq, ev.Type)
		if ev.Type == types.EventDraftCreated {
			draftID = ev.DraftID
		}
	}

	if seq[0] != types.EventPreprocessing {
		t.Errorf("first event = %q", seq[0])
	}
	if seq[len(seq)-1] != types.EventComplete {
		t.Errorf("last event = %q", seq[len(seq)-1])
	}

	if draftID == "" {
		t.Fatal("no draft_created event")
	}
	if _, err := st.GetDraft(context.Background(), draftID, "alice"); err != nil {
		t.Errorf("streamed draft not persisted: %v", err)
	}
}

func TestOutlineStreamRejectsMissingOwner(t *testing.T) {
	h, _, _ := newTestHandlers(&completion.Mock{})
	srv := NewServer(h)

	w := doJSON(t, srv.Handler, http.MethodPost, "/api/outline/stream", map[string]any{"prompt": "topic"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
