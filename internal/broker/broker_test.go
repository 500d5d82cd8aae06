package broker

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// fakeSession records delivered payloads; failAfter > 0 makes Deliver start
// failing after that many payloads.
type fakeSession struct {
	id        string
	mu        sync.Mutex
	delivered [][]byte
	fail      bool
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Deliver(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection gone")
	}
	s.delivered = append(s.delivered, payload)
	return nil
}

func (s *fakeSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func newTestBroker() *Broker {
	return New(zerolog.Nop())
}

func TestJoinIdempotent(t *testing.T) {
	b := newTestBroker()
	s := &fakeSession{id: "s1"}

	b.Join(s, "42-1-2")
	b.Join(s, "42-1-2")

	if got := b.Rooms("42-1-2"); got != 1 {
		t.Fatalf("expected 1 member after double join, got %d", got)
	}

	b.Broadcast("42-1-2", []byte("x"))
	if got := s.count(); got != 1 {
		t.Fatalf("expected exactly one delivery, got %d", got)
	}
}

func TestBroadcastIsolation(t *testing.T) {
	b := newTestBroker()
	inRoom := &fakeSession{id: "s1"}
	elsewhere := &fakeSession{id: "s2"}

	b.Join(inRoom, "42-1-2")
	b.Join(elsewhere, "42-1-3")

	b.Broadcast("42-1-2", []byte("hola"))

	if got := inRoom.count(); got != 1 {
		t.Fatalf("expected delivery to room member, got %d", got)
	}
	if got := elsewhere.count(); got != 0 {
		t.Fatalf("session in another room received %d payloads", got)
	}
}

func TestBroadcastEmptyRoomIsNoop(t *testing.T) {
	b := newTestBroker()
	// Must not panic or error; nothing to assert beyond surviving the call.
	b.Broadcast("42-1-2", []byte("nobody home"))
}

func TestDisconnectRemovesAllMemberships(t *testing.T) {
	b := newTestBroker()
	s := &fakeSession{id: "s1"}

	b.Join(s, "42-1-2")
	b.Join(s, "7-1-3")
	b.Disconnect("s1")

	b.Broadcast("42-1-2", []byte("x"))
	b.Broadcast("7-1-3", []byte("y"))

	if got := s.count(); got != 0 {
		t.Fatalf("disconnected session received %d payloads", got)
	}
	if got := b.Rooms("42-1-2"); got != 0 {
		t.Fatalf("expected empty room, got %d members", got)
	}
}

func TestDeliveryFailureEvictsSession(t *testing.T) {
	b := newTestBroker()
	healthy := &fakeSession{id: "s1"}
	broken := &fakeSession{id: "s2", fail: true}

	b.Join(healthy, "42-1-2")
	b.Join(broken, "42-1-2")

	b.Broadcast("42-1-2", []byte("first"))
	b.Broadcast("42-1-2", []byte("second"))

	if got := healthy.count(); got != 2 {
		t.Fatalf("healthy session expected 2 deliveries, got %d", got)
	}
	if got := b.Rooms("42-1-2"); got != 1 {
		t.Fatalf("expected broken session evicted, room has %d members", got)
	}
}

func TestLeaveSingleRoom(t *testing.T) {
	b := newTestBroker()
	s := &fakeSession{id: "s1"}

	b.Join(s, "42-1-2")
	b.Join(s, "7-1-3")
	b.Leave("s1", "42-1-2")

	b.Broadcast("42-1-2", []byte("x"))
	b.Broadcast("7-1-3", []byte("y"))

	if got := s.count(); got != 1 {
		t.Fatalf("expected delivery only from the remaining room, got %d", got)
	}
}

func TestConcurrentJoinBroadcastDisconnect(t *testing.T) {
	b := newTestBroker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := &fakeSession{id: fmt.Sprintf("s%d", n)}
			token := fmt.Sprintf("42-1-%d", n%5+2)
			b.Join(s, token)
			b.Broadcast(token, []byte("m"))
			b.Disconnect(s.ID())
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		token := fmt.Sprintf("42-1-%d", i+2)
		if got := b.Rooms(token); got != 0 {
			t.Errorf("room %s still has %d members after all disconnects", token, got)
		}
	}
}
