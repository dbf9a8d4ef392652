package hub

import (
	"sync"
	"testing"
	"time"
)

func TestMailboxFIFO(t *testing.T) {
	m := NewMailbox[int]()
	for i := 1; i <= 5; i++ {
		if err := m.Send(i); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := 1; i <= 5; i++ {
		v, ok := m.Receive()
		if !ok {
			t.Fatalf("receive %d: mailbox reported closed", i)
		}
		if v != i {
			t.Errorf("expected %d, got %d", i, v)
		}
	}
}

func TestMailboxSendAfterClose(t *testing.T) {
	m := NewMailbox[int]()
	m.Close()
	if err := m.Send(1); err != ErrMailboxClosed {
		t.Errorf("expected ErrMailboxClosed, got %v", err)
	}
	// Closing again must be a no-op.
	m.Close()
}

func TestMailboxDrainsAfterClose(t *testing.T) {
	m := NewMailbox[string]()
	m.Send("a")
	m.Send("b")
	m.Close()

	if v, ok := m.Receive(); !ok || v != "a" {
		t.Fatalf("expected (a, true), got (%q, %v)", v, ok)
	}
	if v, ok := m.Receive(); !ok || v != "b" {
		t.Fatalf("expected (b, true), got (%q, %v)", v, ok)
	}
	if _, ok := m.Receive(); ok {
		t.Error("expected closed mailbox after drain")
	}
}

func TestMailboxBlockingReceive(t *testing.T) {
	m := NewMailbox[int]()
	got := make(chan int, 1)
	go func() {
		if v, ok := m.Receive(); ok {
			got <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	m.Send(42)

	select {
	case v := <-got:
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for blocked receive")
	}
}

func TestMailboxConcurrentProducers(t *testing.T) {
	const producers = 10
	const perProducer = 100

	m := NewMailbox[int]()
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if err := m.Send(j); err != nil {
					t.Errorf("unexpected send error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	m.Close()

	count := 0
	for {
		if _, ok := m.Receive(); !ok {
			break
		}
		count++
	}
	if count != producers*perProducer {
		t.Errorf("expected %d values, got %d", producers*perProducer, count)
	}
}
