package queue

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/zsiec/reel/media"
)

func pkt(tag media.StreamTag, pts int64, size int) *media.Packet {
	return &media.Packet{Stream: tag, PTS: pts, Data: make([]byte, size)}
}

func TestFIFOOrder(t *testing.T) {
	t.Parallel()

	q := New()
	for i := int64(0); i < 100; i++ {
		tag := media.StreamVideo
		if i%3 == 0 {
			tag = media.StreamAudio
		}
		if err := q.Put(pkt(tag, i, 10)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	for i := int64(0); i < 100; i++ {
		p, ok := q.Get(false)
		if !ok {
			t.Fatalf("Get %d: queue unexpectedly empty", i)
		}
		if p.PTS != i {
			t.Fatalf("Get %d: got PTS %d, want %d", i, p.PTS, i)
		}
	}
	if _, ok := q.Get(false); ok {
		t.Error("queue should be empty after draining")
	}
}

func TestSizeAccounting(t *testing.T) {
	t.Parallel()

	q := New()
	rng := rand.New(rand.NewSource(1))

	var queued []*media.Packet
	expect := func() int64 {
		var n int64
		for _, p := range queued {
			n += int64(p.Size())
		}
		return n
	}

	for i := 0; i < 1000; i++ {
		if rng.Intn(2) == 0 || len(queued) == 0 {
			p := pkt(media.StreamVideo, int64(i), rng.Intn(4096))
			if err := q.Put(p); err != nil {
				t.Fatalf("Put: %v", err)
			}
			queued = append(queued, p)
		} else {
			got, ok := q.Get(false)
			if !ok {
				t.Fatal("Get: queue unexpectedly empty")
			}
			if got != queued[0] {
				t.Fatal("Get returned packet out of order")
			}
			queued = queued[1:]
		}

		if q.Size() != expect() {
			t.Fatalf("step %d: Size() = %d, want %d", i, q.Size(), expect())
		}
		if q.Len() != len(queued) {
			t.Fatalf("step %d: Len() = %d, want %d", i, q.Len(), len(queued))
		}
	}
}

func TestBlockingGet(t *testing.T) {
	t.Parallel()

	q := New()
	want := pkt(media.StreamVideo, 42, 8)

	got := make(chan *media.Packet)
	go func() {
		p, ok := q.Get(true)
		if !ok {
			close(got)
			return
		}
		got <- p
	}()

	// Give the consumer a moment to reach the wait before publishing.
	time.Sleep(20 * time.Millisecond)
	select {
	case <-got:
		t.Fatal("Get returned before any Put")
	default:
	}

	if err := q.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case p := <-got:
		if p != want {
			t.Error("blocking Get returned a different packet")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocking Get did not wake after Put")
	}
}

func TestNonBlockingGetReturnsImmediately(t *testing.T) {
	t.Parallel()

	q := New()
	start := time.Now()
	if _, ok := q.Get(false); ok {
		t.Error("Get(false) on empty queue reported a packet")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Get(false) took %v, expected immediate return", elapsed)
	}
}

func TestConcurrentProducers(t *testing.T) {
	t.Parallel()

	q := New()
	const producers = 4
	const perProducer = 250

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.Put(pkt(media.StreamVideo, int64(id), 16)); err != nil {
					t.Errorf("Put: %v", err)
					return
				}
			}
		}(i)
	}

	done := make(chan int)
	go func() {
		n := 0
		for {
			if _, ok := q.Get(true); !ok {
				done <- n
				return
			}
			n++
		}
	}()

	wg.Wait()
	q.Close()

	if n := <-done; n != producers*perProducer {
		t.Errorf("consumed %d packets, want %d", n, producers*perProducer)
	}
	if q.Size() != 0 || q.Len() != 0 {
		t.Errorf("drained queue: Size=%d Len=%d, want 0/0", q.Size(), q.Len())
	}
}

func TestCloseDrainsBeforeReportingClosed(t *testing.T) {
	t.Parallel()

	q := New()
	for i := int64(0); i < 3; i++ {
		if err := q.Put(pkt(media.StreamAudio, i, 4)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	q.Close()

	if err := q.Put(pkt(media.StreamAudio, 3, 4)); err != ErrClosed {
		t.Errorf("Put after Close: got %v, want ErrClosed", err)
	}

	for i := int64(0); i < 3; i++ {
		p, ok := q.Get(true)
		if !ok {
			t.Fatalf("Get %d after Close: queue should drain remaining packets", i)
		}
		if p.PTS != i {
			t.Errorf("Get %d: got PTS %d, want %d", i, p.PTS, i)
		}
	}
	if _, ok := q.Get(true); ok {
		t.Error("drained closed queue should report closed")
	}
}

func TestCloseWakesBlockedConsumer(t *testing.T) {
	t.Parallel()

	q := New()
	done := make(chan bool)
	go func() {
		_, ok := q.Get(true)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Get on closed empty queue reported a packet")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not wake blocked consumer")
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	q := New()
	for i := int64(0); i < 10; i++ {
		if err := q.Put(pkt(media.StreamVideo, i, 128)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	q.Flush()

	if q.Len() != 0 {
		t.Errorf("Len after Flush = %d, want 0", q.Len())
	}
	if q.Size() != 0 {
		t.Errorf("Size after Flush = %d, want 0", q.Size())
	}
	if _, ok := q.Get(false); ok {
		t.Error("Get after Flush returned a packet")
	}
}
