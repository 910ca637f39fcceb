package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"upyt/codec"
)

// UpdateFile replaces the device's content at path (currently believed
// to equal old) with new, transmitting only a diff rather than the whole
// file. The update is atomic: it writes to a freshly-named temporary
// file and renames it over path only once every patch command has been
// accepted.
//
// When safe is true, every byte the device actually reads back from the
// old file is also hashed on the device side (SHA-256); if that digest
// disagrees with the same hash computed locally over the bytes the
// planner declared Equal, old did not match reality and UpdateFile
// deletes the temp file and returns ErrUpdateMismatch without touching
// path.
func (f *Facade) UpdateFile(path string, old, new []byte, blockSize, commandLimit int, safe bool) error {
	if err := f.ensureDefined("get_temp_file_name", "uh"); err != nil {
		return err
	}
	if _, err := f.exec(fmt.Sprintf("fi = open(%s, 'rb'); r = fi.read; s = fi.seek", pyStr(path))); err != nil {
		return execErr("update_file open old "+path, err)
	}

	tempOut, err := f.exec(fmt.Sprintf("print(get_temp_file_name(%s))", pyStr(path)))
	if err != nil {
		return execErr("update_file temp name "+path, err)
	}
	tempPath := strings.TrimSpace(tempOut)

	if _, err := f.exec(fmt.Sprintf("fo = open(%s, 'wb'); w = fo.write", pyStr(tempPath))); err != nil {
		return execErr("update_file open temp "+tempPath, err)
	}

	if safe {
		if err := f.ensureDefined("make_read_and_hash"); err != nil {
			return err
		}
		if _, err := f.exec("import hashlib; _h = hashlib.sha256(); r = make_read_and_hash(fi.read, _h)"); err != nil {
			return execErr("update_file hash setup "+path, err)
		}
	}

	equalOverhead, seekOverhead := codec.EstimateOverheads(new, len(old), blockSize)
	plan := codec.Plan(old, new, equalOverhead, seekOverhead)

	hostHash := sha256.New()
	commands := codec.BuildCommands(old, new, plan, blockSize, func(region []byte) {
		if safe {
			hostHash.Write(region)
		}
	})

	for _, batch := range codec.Batch(commands, codec.DefaultByteBudget, commandLimit) {
		if _, err := f.exec(batch); err != nil {
			return execErr("update_file patch "+path, err)
		}
	}

	if _, err := f.exec("fi.close(); fo.close()"); err != nil {
		return execErr("update_file close "+path, err)
	}

	if safe {
		digestOut, err := f.exec("print(_h.hexdigest())")
		if err != nil {
			return execErr("update_file hash digest "+path, err)
		}
		deviceDigest := strings.TrimSpace(digestOut)
		hostDigest := hex.EncodeToString(hostHash.Sum(nil))
		if deviceDigest != hostDigest {
			f.ensureDefined("os")
			f.exec(fmt.Sprintf("os.remove(%s)", pyStr(tempPath)))
			return ErrUpdateMismatch
		}
	}

	if err := f.Rename(tempPath, path); err != nil {
		return execErr("update_file rename "+path, err)
	}
	return nil
}
