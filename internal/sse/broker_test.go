package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects whatever is buffered on ch.
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

	b.Publish(Event{Type: TypeWorkspaceUpdated, Data: map[string]string{"userId": "u1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: workspace.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"userId":"u1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestUserFilter(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	mine := b.Subscribe("u1")
	other := b.Subscribe("u2")
	all := b.Subscribe("")
	defer b.Unsubscribe(mine)
	defer b.Unsubscribe(other)
	defer b.Unsubscribe(all)

	b.PublishWorkspaceEvent("updated", "u1")
	time.Sleep(50 * time.Millisecond)

	if got := drain(mine); len(got) != 2 {
		t.Errorf("u1 got %d events, want 2", len(got))
	}
	if got := drain(other); len(got) != 0 {
		t.Errorf("u2 got %v", got)
	}
	if got := drain(all); len(got) != 2 {
		t.Errorf("unfiltered got %d events, want 2", len(got))
	}
}

func TestRefreshThrottlePerUser(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishWorkspaceEvent("updated", "u1")
	b.PublishWorkspaceEvent("changed", "u1")
	b.PublishWorkspaceEvent("updated", "u2")
	time.Sleep(50 * time.Millisecond)

	refresh, other := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: board.refresh") {
			refresh++
		} else {
			other++
		}
	}
	if other != 3 {
		t.Errorf("workspace events = %d, want 3", other)
	}
	if refresh != 2 {
		t.Errorf("refresh events = %d, want 2 (one per user)", refresh)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?userId=u1", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeWorkspaceUpdated, UserID: "u2", Data: map[string]string{"userId": "u2"}})
	b.Publish(Event{Type: TypeWorkspaceChanged, UserID: "u1", Data: map[string]string{"userId": "u1"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: workspace.changed") {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, "u2") {
		t.Errorf("handler leaked another user's event: %q", body)
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

	b.Publish(Event{Type: TypeWorkspaceUpdated})
	b.PublishWorkspaceEvent("updated", "u1")
}

func TestSubscriptionAccepts(t *testing.T) {
	cases := []struct {
		filter, target string
		want           bool
	}{
		{"", "", true},
		{"", "u1", true},
		{"u1", "", true},
		{"u1", "u1", true},
		{"u1", "u2", false},
	}
	for _, c := range cases {
		sub := subscription{userID: c.filter}
		if got := sub.accepts(Event{UserID: c.target}); got != c.want {
			t.Errorf("filter %q, event %q: got %v, want %v", c.filter, c.target, got, c.want)
		}
	}
}
