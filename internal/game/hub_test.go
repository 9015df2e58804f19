package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.writes))
	for _, w := range c.writes {
		var m Message
		if err := json.Unmarshal(w, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHub_GetClientCount(t *testing.T) {
	hub := NewHub()

	if count := hub.GetClientCount(); count != 0 {
		t.Errorf("GetClientCount() = %v, want 0", count)
	}
}

func TestHub_BroadcastInOrder(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a, b := &fakeConn{}, &fakeConn{}
	hub.RegisterClient(a, "")
	hub.RegisterClient(b, "")
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	for i := 1; i <= 10; i++ {
		hub.Broadcast(MultiplierMessage(uint64(i), 1.0))
	}

	for _, conn := range []*fakeConn{a, b} {
		waitFor(t, func() bool { return len(conn.messages()) == 10 })
		for i, m := range conn.messages() {
			if m.RoundID != uint64(i+1) {
				t.Fatalf("message %d has round %d, want %d", i, m.RoundID, i+1)
			}
		}
	}
}

func TestHub_ReplyRightAfterRegister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	for i := 0; i < 50; i++ {
		conn := &fakeConn{}
		hub.RegisterClient(conn, "")
		if !hub.Identify(conn, "alice") {
			t.Fatalf("connection %d not registered when RegisterClient returned", i)
		}
		hub.Reply(conn, PongMessage())
		waitFor(t, func() bool { return len(conn.messages()) == 1 })
		if got := conn.messages()[0].Action; got != ActionPong {
			t.Fatalf("reply action = %q, want %q", got, ActionPong)
		}
	}
}

func TestHub_SendToIdentifiedUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	alice, bob := &fakeConn{}, &fakeConn{}
	hub.RegisterClient(alice, "")
	hub.RegisterClient(bob, "")
	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	if !hub.Identify(alice, "alice") {
		t.Fatal("Identify() = false for a registered connection")
	}
	if got := hub.UserID(alice); got != "alice" {
		t.Errorf("UserID() = %q, want alice", got)
	}

	hub.SendTo("alice", BalanceMessage(900))
	hub.Reply(bob, PongMessage())

	waitFor(t, func() bool { return len(alice.messages()) == 1 && len(bob.messages()) == 1 })

	if got := alice.messages()[0]; got.Action != ActionUpdateBalance || got.Balance == nil || *got.Balance != 900 {
		t.Errorf("alice got %+v, want update_balance 900", got)
	}
	if got := bob.messages()[0]; got.Action != ActionPong {
		t.Errorf("bob got %+v, want pong", got)
	}
}

func TestHub_IdentifyUnknownConn(t *testing.T) {
	hub := NewHub()
	if hub.Identify(&fakeConn{}, "ghost") {
		t.Error("Identify() = true for an unregistered connection")
	}
}

func TestHub_UnregisterClosesConn(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn := &fakeConn{}
	hub.RegisterClient(conn, "u1")
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.UnregisterClient(conn)
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })

	if !conn.isClosed() {
		t.Error("connection not closed after unregister")
	}

	// Unknown connections are ignored.
	hub.UnregisterClient(&fakeConn{})
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	conn := &fakeConn{}
	hub.RegisterClient(conn, "u1")
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.Stop()
	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}
	if !conn.isClosed() {
		t.Error("connection not closed on Stop()")
	}

	// Registering after stop must not block.
	late := &fakeConn{}
	hub.RegisterClient(late, "u2")
	if !late.isClosed() {
		t.Error("late connection not closed")
	}
}

func TestHub_BroadcastChannelFull(t *testing.T) {
	hub := NewHub()

	// Hub not running, so the channel fills up (capacity 100).
	for i := 0; i < 100; i++ {
		hub.Broadcast(PongMessage())
	}

	done := make(chan bool, 1)
	go func() {
		hub.Broadcast(PongMessage())
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast() blocked when channel was full")
	}
}

func TestHub_ConcurrentBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hub.Broadcast(MultiplierMessage(uint64(n), 1.5))
		}(i)
	}

	done := make(chan bool)
	go func() {
		wg.Wait()
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Concurrent broadcasts timed out")
	}
}

func BenchmarkHub_Broadcast(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	message := MultiplierMessage(1, 1.23)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Broadcast(message)
	}
}

func BenchmarkHub_GetClientCount(b *testing.B) {
	hub := NewHub()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.GetClientCount()
	}
}
