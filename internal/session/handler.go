package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/hub"
	"github.com/coterm/coterm/internal/logging"
	"github.com/coterm/coterm/internal/protocol"
)

var (
	errAlreadyJoined = errors.New("already in a lobby")
	errNotJoined     = errors.New("not in a lobby")
)

// Handler serves accepted SSH sessions. A session without a command runs
// the JSON control protocol; "edit" attaches the terminal to a private
// editor process supervised by the EditorHost.
type Handler struct {
	Hub     *hub.Hub
	Editors *EditorHost
}

// Handle dispatches one accepted SSH session and blocks until it ends.
func (h *Handler) Handle(s ssh.Session) {
	cmd := s.Command()
	if len(cmd) > 0 && cmd[0] == "edit" {
		h.handleEdit(s, cmd[1:])
		return
	}
	h.handleControl(s)
}

// handleControl runs the command/notification loops for one client.
func (h *Handler) handleControl(s ssh.Session) {
	sess := NewSession(s)
	log.Printf("INFO: Client %s connected from %s (user %s)", sess.ID, sess.RemoteAddr, sess.Username)

	h.Hub.Send(hub.AddClient{ID: sess.ID, Out: sess.Out})
	h.Hub.Send(hub.CurrentLobbies{ClientID: sess.ID})

	// Delivery loop: outbound mailbox to wire. Sole reader of the mailbox.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		enc := json.NewEncoder(s)
		for {
			n, ok := sess.Out.Receive()
			if !ok {
				return
			}
			if err := enc.Encode(n); err != nil {
				log.Printf("WARN: Client %s: write failed: %v", sess.ID, err)
				return
			}
		}
	}()

	// Read loop: wire to commands.
	var joined *hub.Player
	scanner := bufio.NewScanner(s)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var req protocol.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			log.Printf("WARN: Client %s: bad request: %v", sess.ID, err)
			continue
		}
		cmd, nowJoined, err := commandForRequest(req, sess, joined)
		if err != nil {
			log.Printf("WARN: Client %s: rejected %s request: %v", sess.ID, req.Type, err)
			continue
		}
		joined = nowJoined
		h.Hub.Send(cmd)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		logging.Debug("Client %s: read loop ended: %v", sess.ID, err)
	}

	// Disconnect: converge hub state, then tear down delivery.
	if joined != nil {
		h.Hub.Send(hub.RemovePlayer{Player: joined})
	}
	h.Hub.Send(hub.RemoveClient{ID: sess.ID})
	sess.Out.Close()
	<-writeDone
	log.Printf("INFO: Client %s disconnected (%s)", sess.ID, sess.RemoteAddr)
}

// commandForRequest translates one wire request into a hub command. It also
// tracks the connection's joined player: a join request materializes the
// Player, a leave request drops it. The hub remains the authority on
// membership; a join the hub rejects (lobby full) leaves this player
// dangling until the client leaves or rejoins, and its commands then fail
// soft on the hub side.
func commandForRequest(req protocol.Request, sess *Session, joined *hub.Player) (hub.Command, *hub.Player, error) {
	switch req.Type {
	case protocol.ReqCreateLobby:
		if joined != nil {
			return nil, joined, errAlreadyJoined
		}
		p := newPlayer(req, sess)
		return hub.CreateLobbyAndAddPlayer{Player: p}, p, nil

	case protocol.ReqQuickplay:
		if joined != nil {
			return nil, joined, errAlreadyJoined
		}
		p := newPlayer(req, sess)
		return hub.AddPlayerViaQuickplay{Player: p}, p, nil

	case protocol.ReqJoinLobby:
		if joined != nil {
			return nil, joined, errAlreadyJoined
		}
		if req.LobbyID == uuid.Nil {
			return nil, joined, fmt.Errorf("join request without lobby id")
		}
		p := newPlayer(req, sess)
		return hub.AddPlayerToLobby{LobbyID: req.LobbyID, Player: p}, p, nil

	case protocol.ReqLeaveLobby:
		if joined == nil {
			return nil, nil, errNotJoined
		}
		return hub.RemovePlayer{Player: joined}, nil, nil

	case protocol.ReqChat:
		if joined == nil {
			return nil, nil, errNotJoined
		}
		return hub.SendMessage{Player: joined, Text: req.Text}, joined, nil

	case protocol.ReqListLobbies:
		return hub.CurrentLobbies{ClientID: sess.ID}, joined, nil

	case protocol.ReqListPlayers:
		if joined == nil {
			return nil, nil, errNotJoined
		}
		if req.LobbyID == uuid.Nil {
			return nil, joined, fmt.Errorf("roster request without lobby id")
		}
		return hub.CurrentPlayers{LobbyID: req.LobbyID, Player: joined}, joined, nil

	default:
		return nil, joined, fmt.Errorf("unknown request type %q", req.Type)
	}
}

// newPlayer builds the Player identity for a joining connection. The player
// id is the client id; the display name falls back to the SSH username.
func newPlayer(req protocol.Request, sess *Session) *hub.Player {
	name := req.Name
	if name == "" {
		name = sess.Username
	}
	return &hub.Player{ID: sess.ID, Name: name, Out: sess.Out}
}

// handleEdit attaches the connection's terminal to its own editor process.
func (h *Handler) handleEdit(s ssh.Session, args []string) {
	sessionID := uuid.New()
	ptyReq, winCh, isPty := s.Pty()
	if !isPty {
		fmt.Fprintln(s, "edit requires a PTY (try ssh -t)")
		s.Exit(1)
		return
	}

	var initial []byte
	if len(args) > 0 {
		initial = []byte(strings.Join(args, " ") + "\n")
	}

	ed, err := h.Editors.Open(sessionID, uint16(ptyReq.Window.Height), uint16(ptyReq.Window.Width), initial)
	if err != nil {
		log.Printf("ERROR: Session %s: failed to start editor: %v", sessionID, err)
		fmt.Fprintln(s, "failed to start editor")
		s.Exit(1)
		return
	}
	defer h.Editors.Release(sessionID)

	// Forward live window changes to the editor PTY.
	go func() {
		for win := range winCh {
			if err := ed.Resize(uint16(win.Height), uint16(win.Width)); err != nil {
				log.Printf("WARN: Session %s: resize failed: %v", sessionID, err)
			}
		}
	}()

	// Bidirectional pump between the SSH channel and the PTY master. The
	// input goroutine is not awaited: it unblocks on its own once Release
	// closes the PTY and the next write fails.
	go func() {
		if _, err := io.Copy(ed, s); err != nil && err != io.EOF {
			logging.Debug("Session %s: stdin copy ended: %v", sessionID, err)
		}
	}()
	if _, err := io.Copy(s, ed); err != nil && err != io.EOF {
		// An I/O error on the PTY master is the normal end of an editor run.
		logging.Debug("Session %s: stdout copy ended: %v", sessionID, err)
	}
}
