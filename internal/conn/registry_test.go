package conn

import (
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

func TestReadRegistry_TakeIsExclusive(t *testing.T) {
	r := NewReadRegistry()
	c := &Connection{ID: 7, Addr: "a"}
	r.Insert(c)

	if !r.Has(7) {
		t.Fatal("Has(7) = false after Insert")
	}

	got, ok := r.Take(7)
	if !ok || got != c {
		t.Fatalf("Take(7) = %v, %v; want the inserted connection", got, ok)
	}
	if r.Has(7) {
		t.Error("Has(7) = true while the connection is in flight")
	}

	// A duplicate readiness event for an in-flight id finds nothing.
	if _, ok := r.Take(7); ok {
		t.Error("second Take(7) should miss")
	}

	r.Insert(got)
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestReadRegistry_ConcurrentTakeSingleWinner(t *testing.T) {
	r := NewReadRegistry()
	r.Insert(&Connection{ID: 1})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Take(1); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d goroutines took the same connection, want 1", wins)
	}
}

func TestReadRegistry_Drain(t *testing.T) {
	r := NewReadRegistry()
	r.Insert(&Connection{ID: 1})
	r.Insert(&Connection{ID: 2})

	if got := len(r.Drain()); got != 2 {
		t.Errorf("Drain() returned %d connections, want 2", got)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", r.Len())
	}
}

func TestWriteRegistry_DeliverMissIsNoop(t *testing.T) {
	r := NewWriteRegistry()

	found, err := r.Deliver(42, []byte("t x"))
	if found || err != nil {
		t.Errorf("Deliver(unknown) = %v, %v; want false, nil", found, err)
	}
}

func TestWriteRegistry_Deliver(t *testing.T) {
	_, w, peer := split(t, 5)
	r := NewWriteRegistry()
	r.Insert(w)

	found, err := r.Deliver(5, []byte("t x"))
	if !found || err != nil {
		t.Fatalf("Deliver() = %v, %v; want true, nil", found, err)
	}

	buf := make([]byte, 8)
	n, err := unix.Read(peer, buf)
	if err != nil {
		t.Fatalf("peer Read() error = %v", err)
	}
	if string(buf[:n]) != "t x" {
		t.Errorf("peer received %q, want %q", buf[:n], "t x")
	}
}

func TestWriteRegistry_DeliverFailureRemovesEntry(t *testing.T) {
	fd, peer := socketPair(t)
	c, w, err := Split(6, fd, "test")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	defer c.Close()

	r := NewWriteRegistry()
	r.Insert(w)

	_ = unix.Shutdown(peer, unix.SHUT_RDWR)

	found, err := r.Deliver(6, []byte("t x"))
	if !found || err == nil {
		t.Fatalf("Deliver() to a closed peer = %v, %v; want true and an error", found, err)
	}
	if r.Has(6) {
		t.Error("failed write half should be removed")
	}

	// Later publishes to the same id are silently dropped.
	found, err = r.Deliver(6, []byte("t y"))
	if found || err != nil {
		t.Errorf("Deliver() after removal = %v, %v; want false, nil", found, err)
	}
}

func TestWriteRegistry_RemoveAndDrain(t *testing.T) {
	_, w1, _ := split(t, 1)
	_, w2, _ := split(t, 2)

	r := NewWriteRegistry()
	r.Insert(w1)
	r.Insert(w2)

	if !r.Remove(1) {
		t.Error("Remove(1) = false, want true")
	}
	if r.Remove(1) {
		t.Error("second Remove(1) = true, want false")
	}
	if got := r.Drain(); got != 1 {
		t.Errorf("Drain() = %d, want 1", got)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", r.Len())
	}
}
