package connection

import (
	"os"
	"testing"
	"time"
)

func pipePair(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestTimeoutReaderReadReturnsAvailableData(t *testing.T) {
	r, w := pipePair(t)
	tr := newTimeoutReader(r, time.Second)

	w.Write([]byte("hello"))
	got, err := tr.Read(5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Read = %q, want %q", got, "hello")
	}
}

func TestTimeoutReaderReadTimesOutWithPartialData(t *testing.T) {
	r, w := pipePair(t)
	tr := newTimeoutReader(r, 50*time.Millisecond)

	w.Write([]byte("ab"))
	got, err := tr.Read(10)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "ab" {
		t.Errorf("Read = %q, want %q", got, "ab")
	}
}

func TestTimeoutReaderReadUntilFindsSentinel(t *testing.T) {
	r, w := pipePair(t)
	tr := newTimeoutReader(r, time.Second)

	w.Write([]byte("garbage>>> trailing"))
	got, err := tr.ReadUntil([]byte(">>> "))
	if err != nil {
		t.Fatalf("ReadUntil: %v", err)
	}
	if string(got) != "garbage>>> " {
		t.Errorf("ReadUntil = %q, want %q", got, "garbage>>> ")
	}
}

func TestTimeoutReaderReadUntilTimesOutWithoutSentinel(t *testing.T) {
	r, w := pipePair(t)
	tr := newTimeoutReader(r, 50*time.Millisecond)

	w.Write([]byte("no sentinel here"))
	got, err := tr.ReadUntil([]byte("NEVER"))
	if err != nil {
		t.Fatalf("ReadUntil: %v", err)
	}
	if hasSuffix(got, []byte("NEVER")) {
		t.Errorf("ReadUntil unexpectedly found a sentinel in %q", got)
	}
	if string(got) != "no sentinel here" {
		t.Errorf("ReadUntil = %q, want %q", got, "no sentinel here")
	}
}

func TestTimeoutReaderReadBufferedDoesNotBlock(t *testing.T) {
	r, w := pipePair(t)
	tr := newTimeoutReader(r, 5*time.Second)

	start := time.Now()
	got, err := tr.ReadBuffered()
	if err != nil {
		t.Fatalf("ReadBuffered: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("ReadBuffered blocked for %v on an empty pipe", elapsed)
	}
	if len(got) != 0 {
		t.Errorf("ReadBuffered on empty pipe = %q, want empty", got)
	}

	w.Write([]byte("queued"))
	time.Sleep(10 * time.Millisecond)
	got, err = tr.ReadBuffered()
	if err != nil {
		t.Fatalf("ReadBuffered: %v", err)
	}
	if string(got) != "queued" {
		t.Errorf("ReadBuffered = %q, want %q", got, "queued")
	}
}

func TestTimeoutOverrideRestoresPreviousTimeout(t *testing.T) {
	r, _ := pipePair(t)
	tr := newTimeoutReader(r, time.Second)
	var conn Connection = &SerialConnection{f: r, timeoutReader: tr}

	restore := TimeoutOverride(conn, 50*time.Millisecond)
	if conn.Timeout() != 50*time.Millisecond {
		t.Fatalf("Timeout() after override = %v, want 50ms", conn.Timeout())
	}
	restore()
	if conn.Timeout() != time.Second {
		t.Errorf("Timeout() after restore = %v, want 1s", conn.Timeout())
	}
}
