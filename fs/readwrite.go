package fs

import (
	"fmt"

	"upyt/codec"
)

// WriteFile writes the whole of data to path, encoding it block_size
// bytes at a time and choosing whichever of the literal or hex encoding
// is shorter per block.
func (f *Facade) WriteFile(path string, data []byte, blockSize int) error {
	if err := f.ensureDefined("uh"); err != nil {
		return err
	}
	if _, err := f.exec(fmt.Sprintf("f = open(%s, 'wb'); w = f.write", pyStr(path))); err != nil {
		return execErr("write_file open "+path, err)
	}

	for len(data) > 0 {
		n := len(data)
		if n > blockSize {
			n = blockSize
		}
		block := data[:n]
		data = data[n:]
		if _, err := f.exec("w(" + codec.Encode(block) + ")"); err != nil {
			return execErr("write_file "+path, err)
		}
	}

	if _, err := f.exec("f.close()"); err != nil {
		return execErr("write_file close "+path, err)
	}
	return nil
}

// ReadFile reads the whole of path, blockSize bytes at a time.
func (f *Facade) ReadFile(path string, blockSize int) ([]byte, error) {
	if _, err := f.exec(fmt.Sprintf("f = open(%s, 'rb')", pyStr(path))); err != nil {
		return nil, execErr("read_file open "+path, err)
	}
	if err := f.ensureDefined("pnb"); err != nil {
		return nil, err
	}

	var data []byte
	for {
		out, err := f.exec(fmt.Sprintf("pnb(f, %d)", blockSize))
		if err != nil {
			return nil, execErr("read_file "+path, err)
		}
		block, err := evalBytesLiteral(out)
		if err != nil {
			return nil, execErr("read_file "+path, err)
		}
		data = append(data, block...)
		if len(block) < blockSize {
			break
		}
	}

	if _, err := f.exec("f.close()"); err != nil {
		return nil, execErr("read_file close "+path, err)
	}
	return data, nil
}
