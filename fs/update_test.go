package fs

import (
	"bytes"
	"errors"
	"testing"

	"upyt/devicefake"
)

// TestUpdateFileAppliesDifferentialPatch covers the differential-update
// scenario: a large shared prefix/suffix around a small inserted region,
// verifying the device ends up with exactly new without ever receiving
// the whole file as one literal block.
func TestUpdateFileAppliesDifferentialPatch(t *testing.T) {
	dev := devicefake.New()
	old := bytes.Repeat([]byte("0123456789"), 200)
	dev.PutFile("/data.bin", old)
	f := New(dev.Dial())

	newContent := append(append([]byte(nil), old[:1000]...), append([]byte("INSERTED"), old[1000:]...)...)

	if err := f.UpdateFile("/data.bin", old, newContent, 64, 20, false); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}

	got, ok := dev.FileContent("/data.bin")
	if !ok {
		t.Fatal("device has no /data.bin after UpdateFile")
	}
	if !bytes.Equal(got, newContent) {
		t.Errorf("device content length %d, want %d (not equal)", len(got), len(newContent))
	}
}

func TestUpdateFileSafeModeAcceptsMatchingOld(t *testing.T) {
	dev := devicefake.New()
	old := []byte("the quick brown fox jumps over the lazy dog")
	dev.PutFile("/f.txt", old)
	f := New(dev.Dial())

	newContent := []byte("the quick brown FOX jumps over the lazy dog")
	if err := f.UpdateFile("/f.txt", old, newContent, 16, 20, true); err != nil {
		t.Fatalf("UpdateFile (safe): %v", err)
	}

	got, ok := dev.FileContent("/f.txt")
	if !ok || !bytes.Equal(got, newContent) {
		t.Errorf("device content = %q, ok=%v, want %q, true", got, ok, newContent)
	}
}

// TestUpdateFileSafeModeDetectsMismatch covers the safe-mode-mismatch
// scenario: the caller's belief about the old content (old) has drifted
// from what is actually on the device, so the hash verification must
// catch it, refuse the update, and leave the device's file untouched.
func TestUpdateFileSafeModeDetectsMismatch(t *testing.T) {
	dev := devicefake.New()
	// actualOld is what is really on the device; staleOld is what the
	// caller (wrongly) believes is there. They agree everywhere except a
	// region that the staleOld-vs-newContent diff will consider
	// unchanged — exactly the blind spot safe mode exists to catch.
	actualOld := []byte("AAAAAAAAAABBBBBBBBBBCCCCCCCCCCDDDDDDDDDD")
	dev.PutFile("/f.txt", actualOld)
	f := New(dev.Dial())

	staleOld := []byte("AAAAAAAAAAXXXXXXXXXXCCCCCCCCCCDDDDDDDDDD")
	newContent := []byte("AAAAAAAAAAXXXXXXXXXXEEEEEEEEEEDDDDDDDDDD")

	err := f.UpdateFile("/f.txt", staleOld, newContent, 16, 20, true)
	if !errors.Is(err, ErrUpdateMismatch) {
		t.Fatalf("UpdateFile error = %v, want ErrUpdateMismatch", err)
	}

	got, ok := dev.FileContent("/f.txt")
	if !ok || !bytes.Equal(got, actualOld) {
		t.Errorf("device content changed after a failed safe update: got %q, want untouched %q", got, actualOld)
	}

	// The temp file used for the attempt must not be left behind.
	if dev.HasFile("/f.txt.0") {
		t.Error("temp file /f.txt.0 left behind after a mismatch")
	}
}
