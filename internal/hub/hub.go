// Package hub implements the session-state actor at the core of coterm.
//
// A single goroutine (Run) owns every piece of mutable session state: the
// client registry, the lobby registry, and each lobby's membership. All
// mutation happens by enqueuing commands onto the hub's unbounded mailbox;
// the actor drains it and applies one command at a time to completion.
// There are no locks because there is exactly one writer.
package hub

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/protocol"
)

// DefaultLobbyCapacity is used when the configuration does not set one.
const DefaultLobbyCapacity = 4

// Hub is the session-state actor. Producers interact with it only through
// Send; the registries are owned exclusively by the goroutine running Run.
type Hub struct {
	tx *Mailbox[Command]

	// Owned by the Run goroutine. Never touched from outside.
	clients  map[uuid.UUID]*Mailbox[protocol.Notification]
	lobbies  map[uuid.UUID]*Lobby
	capacity int
}

// New creates a hub whose future lobbies hold at most capacity players.
func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultLobbyCapacity
	}
	return &Hub{
		tx:       NewMailbox[Command](),
		clients:  make(map[uuid.UUID]*Mailbox[protocol.Notification]),
		lobbies:  make(map[uuid.UUID]*Lobby),
		capacity: capacity,
	}
}

// Send enqueues cmd for the actor. It never blocks. Returns ErrMailboxClosed
// once Close has been called.
func (h *Hub) Send(cmd Command) error {
	return h.tx.Send(cmd)
}

// Close stops command intake. Run returns once the queue is drained.
func (h *Hub) Close() {
	h.tx.Close()
}

// Run drains the command queue until the hub is closed and the queue is
// empty. Each command runs to completion before the next starts, so command
// effects never interleave. Run must be called exactly once, from its own
// goroutine.
func (h *Hub) Run() {
	for {
		cmd, ok := h.tx.Receive()
		if !ok {
			log.Printf("INFO: Hub command queue closed and drained. Shutting down.")
			return
		}
		h.dispatch(cmd)
	}
}

// dispatch applies one command. Unknown references are soft errors: log and
// drop, state unchanged. Closed outbound mailboxes are hard errors: the
// recipient is treated as already disconnected and the matching removal
// command is synthesized so state converges.
func (h *Hub) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case CurrentPlayers:
		lobby, ok := h.lobbies[c.LobbyID]
		if !ok {
			log.Printf("ERROR: Lobby with ID %s was not found.", c.LobbyID)
			return
		}
		h.removePlayers(lobby.sendCurrentPlayers(c.Player))

	case CreateLobbyAndAddPlayer:
		h.addPlayerToNewLobby(c.Player)

	case AddPlayerViaQuickplay:
		h.addPlayerViaQuickplay(c.Player)

	case AddPlayerToLobby:
		lobby, ok := h.lobbies[c.LobbyID]
		if !ok {
			log.Printf("ERROR: Lobby with ID %s was not found.", c.LobbyID)
			return
		}
		h.removePlayers(lobby.addPlayer(c.Player, h.tx))

	case SendMessage:
		lobby := h.lobbyOf(c.Player.ID)
		if lobby == nil {
			log.Printf("ERROR: No lobby has player %s. Unable to send message to the rest of the lobby members.", c.Player.Name)
			return
		}
		h.removePlayers(lobby.sendMessage(c.Player, c.Text))

	case RemovePlayer:
		lobby := h.lobbyOf(c.Player.ID)
		if lobby == nil {
			log.Printf("ERROR: No lobby has player %s. Unable to delete the player.", c.Player.Name)
			return
		}
		h.removePlayers(lobby.removePlayer(c.Player, h.tx))

	case LobbyFull:
		if err := c.ReplyTo.Send(protocol.Notification{Type: protocol.NoteLobbyFull}); err != nil {
			log.Printf("WARN: Failed to deliver lobby-full reply: %v", err)
		}

	case CurrentLobbies:
		client, ok := h.clients[c.ClientID]
		if !ok {
			log.Printf("ERROR: Client with ID %s was not found.", c.ClientID)
			return
		}
		if err := client.Send(protocol.Notification{Type: protocol.NoteLobbies, Lobbies: h.currentLobbies()}); err != nil {
			log.Printf("WARN: Failed to send lobby list to client %s: %v", c.ClientID, err)
			h.tx.Send(RemoveClient{ID: c.ClientID})
		}

	case SendLobbyInformation:
		lobby, ok := h.lobbies[c.LobbyID]
		if !ok {
			log.Printf("ERROR: Lobby with ID %s was not found.", c.LobbyID)
			return
		}
		info := lobby.Info()
		h.broadcastToClients(protocol.Notification{Type: protocol.NoteLobbyInfo, Lobby: &info})

	case RemoveLobby:
		delete(h.lobbies, c.LobbyID)
		log.Printf("INFO: Removed lobby %s. Lobby count is %d.", c.LobbyID, len(h.lobbies))

	case SendConnectionCounts:
		counts := protocol.ConnectionCounts{Clients: len(h.clients), Players: h.playerCount()}
		h.broadcastToClients(protocol.Notification{Type: protocol.NoteConnectionCounts, Counts: &counts})

	case BroadcastLobbies:
		h.broadcastToClients(protocol.Notification{Type: protocol.NoteLobbies, Lobbies: h.currentLobbies()})

	case AddClient:
		h.clients[c.ID] = c.Out
		h.tx.Send(SendConnectionCounts{})
		log.Printf("INFO: Added client with ID %s. Client count is %d.", c.ID, len(h.clients))

	case RemoveClient:
		delete(h.clients, c.ID)
		h.tx.Send(SendConnectionCounts{})
		log.Printf("INFO: Removed client with ID %s. Client count is %d.", c.ID, len(h.clients))

	case SetLobbyCapacity:
		if c.Capacity <= 0 {
			log.Printf("ERROR: Ignoring invalid lobby capacity %d.", c.Capacity)
			return
		}
		h.capacity = c.Capacity
		log.Printf("INFO: Lobby capacity for new lobbies set to %d.", c.Capacity)

	default:
		log.Printf("ERROR: Unknown hub command %T.", cmd)
	}
}

// addPlayerToNewLobby allocates a fresh lobby and admits p. The lobby is
// registered before admission so the discovery update it emits can resolve.
func (h *Hub) addPlayerToNewLobby(p *Player) {
	lobby := NewLobby(lobbyName(), h.capacity)
	h.lobbies[lobby.ID] = lobby
	log.Printf("INFO: Created lobby %s. Lobby count is %d.", lobby.Name, len(h.lobbies))
	h.removePlayers(lobby.addPlayer(p, h.tx))
}

// addPlayerViaQuickplay admits p into the first lobby with free capacity,
// falling back to a new lobby when every existing one is full.
func (h *Hub) addPlayerViaQuickplay(p *Player) {
	for _, lobby := range h.lobbies {
		if len(lobby.Players) < lobby.Capacity {
			h.removePlayers(lobby.addPlayer(p, h.tx))
			return
		}
	}
	h.addPlayerToNewLobby(p)
}

// lobbyOf scans all lobbies for the one containing the given player id.
// Linear, which is fine at the expected handful of concurrent lobbies; a
// reverse index kept in lock-step with membership is the scale-up path.
func (h *Hub) lobbyOf(playerID uuid.UUID) *Lobby {
	for _, lobby := range h.lobbies {
		if _, ok := lobby.Players[playerID]; ok {
			return lobby
		}
	}
	return nil
}

// currentLobbies returns the discovery snapshot sorted by lobby name.
func (h *Hub) currentLobbies() []protocol.LobbyInfo {
	result := make([]protocol.LobbyInfo, 0, len(h.lobbies))
	for _, lobby := range h.lobbies {
		result = append(result, lobby.Info())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// playerCount sums membership across all lobbies.
func (h *Hub) playerCount() int {
	total := 0
	for _, lobby := range h.lobbies {
		total += len(lobby.Players)
	}
	return total
}

// broadcastToClients fans n out to every connected client. A failed send
// marks that client gone: log, keep going, synthesize its removal.
func (h *Hub) broadcastToClients(n protocol.Notification) {
	for id, client := range h.clients {
		if err := client.Send(n); err != nil {
			log.Printf("WARN: Failed to deliver %s to client %s: %v", n.Type, id, err)
			h.tx.Send(RemoveClient{ID: id})
		}
	}
}

// removePlayers synthesizes RemovePlayer for every player whose outbound
// mailbox turned out to be closed during a broadcast.
func (h *Hub) removePlayers(failed []*Player) {
	for _, p := range failed {
		h.tx.Send(RemovePlayer{Player: p})
	}
}

// lobbyName generates a short human-readable lobby name.
func lobbyName() string {
	return fmt.Sprintf("lobby-%s", uuid.New().String()[:8])
}
