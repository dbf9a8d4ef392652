package session

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/editor"
)

// EditorHost tracks the editor process of every session currently editing.
// It owns the termination notices: when an editor exits it is dropped from
// the registry and never restarted here. Restart policy, if any, belongs to
// whoever opens the next editor.
type EditorHost struct {
	mu      sync.Mutex
	command string
	editors map[uuid.UUID]*editor.Editor
}

// NewEditorHost creates a host that launches the given editor command.
func NewEditorHost(command string) *EditorHost {
	return &EditorHost{
		command: command,
		editors: make(map[uuid.UUID]*editor.Editor),
	}
}

// Open starts an editor for the session and registers it. The returned
// editor is owned by the caller until Release.
func (h *EditorHost) Open(sessionID uuid.UUID, rows, cols uint16, initial []byte) (*editor.Editor, error) {
	notify := make(chan editor.Exit, 1)
	ed, err := editor.Start(h.command, initial, rows, cols, notify)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.editors[sessionID] = ed
	h.mu.Unlock()

	go func() {
		<-notify
		log.Printf("INFO: Editor for session %s terminated. Not restarting.", sessionID)
		h.Release(sessionID)
	}()

	return ed, nil
}

// Release closes the session's editor and removes it from the registry.
// Safe to call after the editor already exited.
func (h *EditorHost) Release(sessionID uuid.UUID) {
	h.mu.Lock()
	ed, ok := h.editors[sessionID]
	delete(h.editors, sessionID)
	h.mu.Unlock()

	if ok {
		ed.Close()
	}
}

// Active reports how many editors are currently running.
func (h *EditorHost) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.editors)
}

// CloseAll tears down every running editor, used at shutdown.
func (h *EditorHost) CloseAll() {
	h.mu.Lock()
	ids := make([]uuid.UUID, 0, len(h.editors))
	for id := range h.editors {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Release(id)
	}
}
