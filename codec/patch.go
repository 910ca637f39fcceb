package codec

import "fmt"

// Command is one device-side instruction in a patch command stream, and
// the number of bytes it causes the device to write to the output file
// (0 for a bare seek).
type Command struct {
	Text         string
	BytesWritten int
}

// BuildCommands turns a diff plan into a sequence of short device-side
// commands using the aliases w (write), r (read), s (seek) and uh
// (unhexlify). blockSize bounds how much data any single command moves.
//
// onEqualRegion, if non-nil, is invoked once per emitted read command
// (each at most blockSize bytes of an Equal span, in order) with the
// corresponding old-file bytes — the facade uses this to accumulate a
// host-side hash of everything a safe update actually read back.
func BuildCommands(old, new []byte, plan []Op, blockSize int, onEqualRegion func([]byte)) []Command {
	var commands []Command
	cursor := 0

	for _, op := range plan {
		switch op.Kind {
		case Equal:
			if cursor != op.I1 {
				commands = append(commands, Command{Text: fmt.Sprintf("s(%d)", op.I1)})
				cursor = op.I1
			}
			for cursor < op.I2 {
				n := op.I2 - cursor
				if n > blockSize {
					n = blockSize
				}
				if onEqualRegion != nil {
					onEqualRegion(old[cursor : cursor+n])
				}
				commands = append(commands, Command{
					Text:         fmt.Sprintf("w(r(%d))", n),
					BytesWritten: n,
				})
				cursor += n
			}

		case Insert:
			data := new[op.J1:op.J2]
			for len(data) > 0 {
				n := len(data)
				if n > blockSize {
					n = blockSize
				}
				chunk := data[:n]
				commands = append(commands, Command{
					Text:         fmt.Sprintf("w(%s)", Encode(chunk)),
					BytesWritten: n,
				})
				data = data[n:]
			}
		}
	}

	return commands
}
