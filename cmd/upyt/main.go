// Command upyt is a thin demonstration entrypoint wiring the connection,
// REPL driver, filesystem facade, and synchroniser packages together. It
// is deliberately not the argument-parsing CLI front-end (with its
// per-command glue for ls/cp/rm/cat/mkdir/sync/reset/interrupt/terminal)
// — that dispatch layer is an external collaborator this module does
// not implement.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"upyt/connection"
	"upyt/fs"
	"upyt/repl"
	"upyt/sync"
)

func main() {
	if logPath := os.Getenv("UPYT_LOG"); logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			log.SetOutput(f)
		}
	} else {
		p := filepath.Join(os.TempDir(), fmt.Sprintf("upyt-%d.log", os.Getpid()))
		if f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			log.SetOutput(f)
		}
	}

	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: upyt <connection-spec> <host-dir> <device-dir>")
		os.Exit(1)
	}
	connSpec, hostDir, deviceDir := os.Args[1], os.Args[2], os.Args[3]

	if err := runSync(connSpec, hostDir, deviceDir); err != nil {
		log.Printf("sync failed: %v", err)
		fmt.Fprintf(os.Stderr, "upyt: %v\n", err)
		os.Exit(1)
	}
}

func runSync(connSpec, hostDir, deviceDir string) error {
	conn, err := connection.FromSpecification(connSpec)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	conn.SetTimeout(5 * time.Second)

	if _, err := repl.InterruptAndEnterRepl(conn, 2, 100*time.Millisecond); err != nil {
		return fmt.Errorf("reach repl: %w", err)
	}

	var syncErr error
	err = repl.RawMode(conn, func() error {
		facade := fs.New(conn)
		syncErr = sync.SyncToDevice(facade, hostDir, deviceDir, nil, false, false, func(path string, toUpdate, allHostPaths []string) {
			log.Printf("syncing %s (%d/%d)", path, indexOf(toUpdate, path)+1, len(allHostPaths))
		})
		return syncErr
	})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
