package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "session.content", Data: map[string]int{"cursor": 2}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: ") {
			t.Errorf("missing event id in %q", s)
		}
		if !strings.Contains(s, "event: session.content") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"cursor":2`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSessionFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	all := b.Subscribe("")
	onlyA := b.Subscribe("a")
	onlyB := b.Subscribe("b")
	defer b.Unsubscribe(all)
	defer b.Unsubscribe(onlyA)
	defer b.Unsubscribe(onlyB)

	b.Publish(Event{Type: "session.flags", Session: "a", Data: map[string]bool{"locked": true}})
	b.Publish(Event{Type: "server.ready", Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	if got := len(drain(all)); got != 2 {
		t.Errorf("unfiltered client got %d events, want 2", got)
	}
	if got := len(drain(onlyA)); got != 2 {
		t.Errorf("session a client got %d events, want 2", got)
	}
	msgs := drain(onlyB)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "server.ready") {
		t.Errorf("session b client got %q, want only the global event", msgs)
	}
}

func TestPublishSessionEvent_TranscriptThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// First event per session triggers transcript.updated.
	b.PublishSessionEvent("a", "content", map[string]string{"session": "a"})
	// Second event immediately should NOT trigger another one.
	b.PublishSessionEvent("a", "selection", map[string]string{"session": "a"})
	// Another session has its own throttle window.
	b.PublishSessionEvent("b", "content", map[string]string{"session": "b"})

	time.Sleep(50 * time.Millisecond)
	transcriptCount := 0
	sessionCount := 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "transcript.updated") {
			transcriptCount++
		} else {
			sessionCount++
		}
	}

	if sessionCount != 3 {
		t.Errorf("session events = %d, want 3", sessionCount)
	}
	if transcriptCount != 2 {
		t.Errorf("transcript events = %d, want 2 (one per session)", transcriptCount)
	}
}

func TestPublishSessionEvent_DeleteResetsThrottle(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishSessionEvent("a", "content", map[string]string{"session": "a"})
	b.PublishSessionEvent("a", "deleted", map[string]string{"session": "a"})
	b.PublishSessionEvent("a", "content", map[string]string{"session": "a"})

	time.Sleep(50 * time.Millisecond)
	var kinds []string
	for _, s := range drain(ch) {
		for _, line := range strings.Split(s, "\n") {
			if k, ok := strings.CutPrefix(line, "event: "); ok {
				kinds = append(kinds, k)
			}
		}
	}
	want := []string{
		"session.content", "transcript.updated",
		"session.deleted",
		"session.content", "transcript.updated",
	}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", kinds, want)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?session=s1", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishSessionEvent("other", "content", map[string]string{"session": "other"})
	b.PublishSessionEvent("s1", "content", map[string]string{"session": "s1"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, `"session":"s1"`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, `"session":"other"`) {
		t.Errorf("handler leaked another session: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "session.content", Data: map[string]string{}})
	b.PublishSessionEvent("s1", "content", nil)
}

func TestSSEHandlerHeartbeat(t *testing.T) {
	b := NewBroker(time.Second)
	b.heartbeat = 20 * time.Millisecond
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("body should start with a retry hint: %q", body)
	}
	if !strings.Contains(body, ": keepalive\n\n") {
		t.Errorf("body missing keepalive comment: %q", body)
	}
}
