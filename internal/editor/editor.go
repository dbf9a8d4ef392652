// Package editor supervises an external interactive editor bound to a
// pseudo-terminal. One editor runs per lobby and edits that lobby's shared
// scratch file; every attached session reads from and writes to the same
// PTY master.
//
// The manager never restarts the process. When the editor exits, for any
// reason, exactly one Exit notice is delivered to the owner's channel and
// the restart decision is left to the session layer.
package editor

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/logging"
)

// Exit is the one-shot termination notice for an editor process.
type Exit struct {
	// Err is the error returned by the process wait, nil on clean exit.
	Err error
}

// Editor is a running editor process attached to a PTY.
type Editor struct {
	cmd      *exec.Cmd
	ptmx     *os.File
	filePath string

	closeOnce sync.Once
}

// Start writes the initial content to a fresh scratch file, launches the
// editor command on it inside a PTY of the given size, and begins watching
// for termination. The notice lands on notify exactly once.
func Start(command string, initial []byte, rows, cols uint16, notify chan<- Exit) (*Editor, error) {
	filePath := filepath.Join(os.TempDir(), uuid.New().String())
	if err := os.WriteFile(filePath, initial, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch file %s: %w", filePath, err)
	}

	cmd := exec.Command(command, filePath)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("start pty for editor %q: %w", command, err)
	}

	e := &Editor{
		cmd:      cmd,
		ptmx:     ptmx,
		filePath: filePath,
	}

	go func() {
		err := cmd.Wait()
		log.Printf("WARN: Editor process %q (pid %d) terminated: %v", command, cmd.Process.Pid, err)
		notify <- Exit{Err: err}
	}()

	log.Printf("INFO: Started editor %q on %s (pid %d, %dx%d)", command, filePath, cmd.Process.Pid, cols, rows)
	return e, nil
}

// Resize propagates new terminal dimensions to the running process.
func (e *Editor) Resize(rows, cols uint16) error {
	logging.Debug("Resizing editor pty to %dx%d", cols, rows)
	if err := pty.Setsize(e.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return fmt.Errorf("resize editor pty to %dx%d: %w", cols, rows, err)
	}
	return nil
}

// Read reads editor output from the PTY master.
func (e *Editor) Read(p []byte) (int, error) {
	return e.ptmx.Read(p)
}

// Write feeds keystrokes to the editor through the PTY master.
func (e *Editor) Write(p []byte) (int, error) {
	return e.ptmx.Write(p)
}

// Contents returns the current bytes of the shared scratch file.
func (e *Editor) Contents() ([]byte, error) {
	return os.ReadFile(e.filePath)
}

// Close kills the editor process if still running, closes the PTY master
// and removes the scratch file. The termination watcher still fires its
// single Exit notice. Safe to call more than once.
func (e *Editor) Close() {
	e.closeOnce.Do(func() {
		if e.cmd.Process != nil {
			if err := e.cmd.Process.Kill(); err != nil {
				logging.Debug("Editor process kill: %v", err)
			}
		}
		e.ptmx.Close()
		if err := os.Remove(e.filePath); err != nil && !os.IsNotExist(err) {
			log.Printf("WARN: Failed to remove scratch file %s: %v", e.filePath, err)
		}
	})
}

var _ io.ReadWriter = (*Editor)(nil)
