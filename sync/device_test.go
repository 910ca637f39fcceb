package sync

import (
	"testing"

	"upyt/devicefake"
	"upyt/fs"
)

func TestGetDeviceIdentityMintsAndPersistsOnFirstContact(t *testing.T) {
	dev := devicefake.New()
	fa := fs.New(dev.Dial())

	version, id, err := GetDeviceIdentity(fa, "/proj")
	if err != nil {
		t.Fatalf("GetDeviceIdentity: %v", err)
	}
	if version != 0 {
		t.Errorf("version = %d, want 0 for a freshly minted identity", version)
	}
	if !deviceIDPattern.MatchString(id) {
		t.Errorf("id = %q, does not look like a device id", id)
	}

	data, ok := dev.FileContent("/proj/" + TokenFileName)
	if !ok {
		t.Fatal("device has no token file after minting an identity")
	}
	gotVersion, gotID, ok := DecodeToken(data)
	if !ok || gotVersion != 0 || gotID != id {
		t.Errorf("device token decodes to (%d, %q, %v), want (0, %q, true)", gotVersion, gotID, ok, id)
	}
}

func TestGetDeviceIdentityReadsExistingToken(t *testing.T) {
	dev := devicefake.New()
	dev.PutFile("/proj/"+TokenFileName, []byte("042 0123456789AB"))
	fa := fs.New(dev.Dial())

	version, id, err := GetDeviceIdentity(fa, "/proj")
	if err != nil {
		t.Fatalf("GetDeviceIdentity: %v", err)
	}
	if version != 42 || id != "0123456789AB" {
		t.Errorf("GetDeviceIdentity = (%d, %q), want (42, %q)", version, id, "0123456789AB")
	}
}

func TestWriteDeviceIdentityRoundTrip(t *testing.T) {
	dev := devicefake.New()
	fa := fs.New(dev.Dial())

	if err := WriteDeviceIdentity(fa, "/proj", 7, "0123456789AB"); err != nil {
		t.Fatalf("WriteDeviceIdentity: %v", err)
	}

	version, id, err := GetDeviceIdentity(fa, "/proj")
	if err != nil {
		t.Fatalf("GetDeviceIdentity: %v", err)
	}
	if version != 7 || id != "0123456789AB" {
		t.Errorf("GetDeviceIdentity = (%d, %q), want (7, %q)", version, id, "0123456789AB")
	}
}

func TestDevicePathJoining(t *testing.T) {
	cases := []struct {
		dir, rel, want string
	}{
		{"", "a.txt", "/a.txt"},
		{"/", "a.txt", "/a.txt"},
		{"/proj", "", "/proj"},
		{"/proj/", "a.txt", "/proj/a.txt"},
		{"/proj", "sub/a.txt", "/proj/sub/a.txt"},
	}
	for _, c := range cases {
		if got := devicePath(c.dir, c.rel); got != c.want {
			t.Errorf("devicePath(%q, %q) = %q, want %q", c.dir, c.rel, got, c.want)
		}
	}
}
