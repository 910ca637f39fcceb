package sync

import (
	"strings"

	"upyt/fs"
)

// devicePath joins a cache-relative, slash-separated path onto a device
// directory, which is itself always slash-separated.
func devicePath(dir, rel string) string {
	dir = strings.TrimRight(dir, "/")
	if rel == "" {
		if dir == "" {
			return "/"
		}
		return dir
	}
	if dir == "" {
		return "/" + rel
	}
	return dir + "/" + rel
}

// GetDeviceIdentity reads the device's identity token at
// <deviceDir>/.upyt_id.txt. If it is missing or unparseable, a fresh
// identity is minted (version 0, a new random device id) and written
// back immediately, so that every directory this tool ever touches ends
// up with a token.
func GetDeviceIdentity(fa *fs.Facade, deviceDir string) (version int, deviceID string, err error) {
	tokenPath := devicePath(deviceDir, TokenFileName)

	if data, readErr := fa.ReadFile(tokenPath, 512); readErr == nil {
		if v, id, ok := DecodeToken(data); ok {
			return v, id, nil
		}
	}

	id, err := NewDeviceID()
	if err != nil {
		return 0, "", err
	}
	token, err := EncodeToken(0, id)
	if err != nil {
		return 0, "", err
	}
	if err := fa.WriteFile(tokenPath, token, 512); err != nil {
		return 0, "", err
	}
	return 0, id, nil
}

// WriteDeviceIdentity writes (version, deviceID) to the device's token
// file.
func WriteDeviceIdentity(fa *fs.Facade, deviceDir string, version int, deviceID string) error {
	token, err := EncodeToken(version, deviceID)
	if err != nil {
		return err
	}
	return fa.WriteFile(devicePath(deviceDir, TokenFileName), token, 512)
}
