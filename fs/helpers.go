package fs

import "strings"

// helperDef is one entry of the device-side helper function library: its
// MicroPython source (sent over the wire verbatim, on first use) and the
// names of other helpers it depends on.
type helperDef struct {
	source string
	deps   []string
}

// helperDefs mirrors the original tool's _DEFINITIONS table: small
// snippets of MicroPython source, each defining exactly one name, plus
// the dependencies that must already be in scope before it can run.
var helperDefs = map[string]helperDef{
	"os":   {source: "import os"},
	"time": {source: "import time"},

	"mkdir": {
		deps: []string{"os"},
		source: dedent(`
			def mkdir(path, parents, exist_ok):
			    if parents:
			        parent = ""
			        for part in path.split("/")[1:-1]:
			            parent += "/" + part
			            try:
			                os.mkdir(parent)
			            except OSError:
			                pass
			    try:
			        os.mkdir(path)
			    except OSError:
			        if not exist_ok:
			            raise
		`),
	},

	"remove_recursive": {
		deps: []string{"os", "time"},
		source: dedent(`
			def remove_recursive(path, timeout_ms, _timeout_at=None):
			    if _timeout_at is None:
			        _timeout_at = time.ticks_add(time.ticks_ms(), timeout_ms)
			    if os.stat(path)[0] & 0x4000:
			        for entry in os.ilistdir(path):
			            name, type = entry[:2]
			            if type & 0x4000:
			                remove_recursive(f"{path}/{name}", timeout_ms, _timeout_at)
			            else:
			                os.remove(f"{path}/{name}")
			            if time.ticks_diff(_timeout_at, time.ticks_ms()) <= 0:
			                raise Exception("Timeout")
			        os.rmdir(path)
			    else:
			        os.remove(path)
		`),
	},

	"ls": {
		deps: []string{"os"},
		source: dedent(`
			def ls(path):
			    directories = []
			    files = []
			    for entry in os.ilistdir(path):
			        name, type = entry[:2]
			        if type & 0x4000:
			            directories.append(name)
			        else:
			            files.append(name)
			    return (directories, files)
		`),
	},

	"pns": {
		source: dedent(`
			def pns(iterator, size):
			    so_far = 0
			    print("[", end="")
			    while so_far < size:
			        try:
			            value = next(iterator)
			            print(repr(value), end=",")
			            so_far += len(value)
			        except StopIteration:
			            break
			    print("]", end="")
		`),
	},

	"uh": {source: "from binascii import unhexlify as uh"},
	"h":  {source: "from binascii import hexlify as h"},

	"bytes_to_evalable": {
		deps: []string{"h"},
		source: dedent(`
			def bytes_to_evalable(data):
			    as_bytes = repr(data)
			    len_as_bytes = len(as_bytes)
			    len_as_hex = len('uh(b"")') + (len(data) * 2)
			    if len_as_bytes < len_as_hex:
			        return as_bytes
			    else:
			        return f"uh({h(data)})"
		`),
	},

	"pnb": {
		deps: []string{"bytes_to_evalable"},
		source: dedent(`
			def pnb(f, n):
			    print(bytes_to_evalable(f.read(n)))
		`),
	},

	"get_temp_file_name": {
		deps: []string{"os"},
		source: dedent(`
			def get_temp_file_name(prefix):
			    i = 0
			    while True:
			        name = f"{prefix}.{i}"
			        try:
			            os.stat(name)
			            i += 1
			        except OSError:
			            return name
		`),
	},

	"make_read_and_hash": {
		source: dedent(`
			def make_read_and_hash(reader, hasher):
			    def read(n):
			        data = reader(n)
			        hasher.update(data)
			        return data
			    return read
		`),
	},

	"get_type": {
		deps: []string{"os"},
		source: dedent(`
			def get_type(path):
			    try:
			        mode = os.stat(path)[0]
			    except OSError:
			        return "absent"
			    return "dir" if mode & 0x4000 else "file"
		`),
	},
}

// dedent strips a common leading tab/space prefix, mirroring the effect
// of textwrap.dedent(...).strip() on the triple-quoted Python snippets
// the original tool stores its helpers as.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	var out []string
	for _, l := range lines {
		out = append(out, strings.TrimPrefix(l, "\t\t\t"))
	}
	return strings.Join(out, "\n")
}
