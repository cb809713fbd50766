package report

import (
	"bytes"
	"net/netip"
	"strings"
	"sync"
	"testing"
)

func TestConsole_Lines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Started(netip.MustParseAddr("10.0.0.1"), 1, 1024)
	c.Scanning(22)
	c.Open(22)
	c.Completed()

	want := "Scanning ports on 10.0.0.1 from 1 to 1024...\n" +
		"Scanning port 22...\n" +
		"Port 22 is open\n" +
		"Scan completed.\n"
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestConsole_IPv6Summary(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Started(netip.MustParseAddr("::1"), 5, 2)
	if got := buf.String(); got != "Scanning ports on ::1 from 5 to 2...\n" {
		t.Fatalf("unexpected summary %q", got)
	}
}

// slowWriter splits each write into single bytes so interleaving would show.
type slowWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *slowWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		s.mu.Lock()
		s.buf.WriteByte(b)
		s.mu.Unlock()
	}
	return len(p), nil
}

func TestConsole_ConcurrentLinesDoNotInterleave(t *testing.T) {
	w := &slowWriter{}
	c := NewConsole(w)

	var wg sync.WaitGroup
	for i := 1; i <= 200; i++ {
		wg.Add(1)
		go func(p uint16) {
			defer wg.Done()
			c.Open(p)
		}(uint16(i))
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(w.buf.String(), "\n"), "\n")
	if len(lines) != 200 {
		t.Fatalf("expected 200 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "Port ") || !strings.HasSuffix(l, " is open") {
			t.Fatalf("corrupted line %q", l)
		}
	}
}

func TestMulti_FansOut(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, &b}
	m.Started(netip.MustParseAddr("127.0.0.1"), 1, 3)
	m.Scanning(1)
	m.Open(2)
	m.Completed()

	for _, r := range []*Recorder{&a, &b} {
		ev := r.Events()
		if len(ev) != 4 {
			t.Fatalf("expected 4 events, got %d", len(ev))
		}
		if ev[0].Kind != KindStarted || ev[0].Target != "127.0.0.1" || ev[0].EndPort != 3 {
			t.Fatalf("bad started event %+v", ev[0])
		}
		if ev[2].Kind != KindOpen || ev[2].Port != 2 {
			t.Fatalf("bad open event %+v", ev[2])
		}
		if ev[3].Kind != KindCompleted {
			t.Fatalf("bad final event %+v", ev[3])
		}
	}
}

func TestFunc_Adapts(t *testing.T) {
	var got []Event
	f := Func(func(e Event) { got = append(got, e) })
	f.Open(8080)
	if len(got) != 1 || got[0].Kind != KindOpen || got[0].Port != 8080 {
		t.Fatalf("unexpected events %+v", got)
	}
}
