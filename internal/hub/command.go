package hub

import (
	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/protocol"
)

// Command is a single unit of work for the hub. Commands are the entire API
// surface into the hub: callers never hold references into its registries,
// they construct one of the types below and enqueue it with Hub.Send.
//
// A command may emit follow-up commands onto the same queue (for example
// AddClient enqueues SendConnectionCounts); follow-ups always go to the back
// of the queue, never inline.
type Command interface {
	isCommand()
}

// CurrentPlayers sends the roster of the given lobby to Player's own
// outbound mailbox.
type CurrentPlayers struct {
	LobbyID uuid.UUID
	Player  *Player
}

// CreateLobbyAndAddPlayer allocates a new lobby and admits Player.
type CreateLobbyAndAddPlayer struct {
	Player *Player
}

// AddPlayerViaQuickplay admits Player into any lobby with free capacity,
// creating a new one if none exists.
type AddPlayerViaQuickplay struct {
	Player *Player
}

// AddPlayerToLobby admits Player into the named lobby if capacity allows.
type AddPlayerToLobby struct {
	LobbyID uuid.UUID
	Player  *Player
}

// SendMessage broadcasts Text to every member of Player's current lobby.
type SendMessage struct {
	Player *Player
	Text   string
}

// RemovePlayer removes Player from its current lobby; an emptied lobby is
// then removed.
type RemovePlayer struct {
	Player *Player
}

// LobbyFull sends a lobby-full notification directly to ReplyTo.
type LobbyFull struct {
	ReplyTo *Mailbox[protocol.Notification]
}

// CurrentLobbies sends a discovery snapshot of all lobbies to one client.
type CurrentLobbies struct {
	ClientID uuid.UUID
}

// SendLobbyInformation broadcasts name and player count of one lobby to
// every connected client, lobby member or not.
type SendLobbyInformation struct {
	LobbyID uuid.UUID
}

// RemoveLobby deletes the lobby from the registry.
type RemoveLobby struct {
	LobbyID uuid.UUID
}

// SendConnectionCounts broadcasts the current client and player counts to
// every connected client.
type SendConnectionCounts struct{}

// BroadcastLobbies pushes a fresh discovery snapshot to every connected
// client. Used by the maintenance scheduler to heal clients that missed an
// incremental update.
type BroadcastLobbies struct{}

// AddClient registers a newly connected client.
type AddClient struct {
	ID  uuid.UUID
	Out *Mailbox[protocol.Notification]
}

// RemoveClient removes a disconnected client.
type RemoveClient struct {
	ID uuid.UUID
}

// SetLobbyCapacity changes the capacity applied to lobbies created from now
// on. Existing lobbies keep the capacity they were created with.
type SetLobbyCapacity struct {
	Capacity int
}

func (CurrentPlayers) isCommand()          {}
func (CreateLobbyAndAddPlayer) isCommand() {}
func (AddPlayerViaQuickplay) isCommand()   {}
func (AddPlayerToLobby) isCommand()        {}
func (SendMessage) isCommand()             {}
func (RemovePlayer) isCommand()            {}
func (LobbyFull) isCommand()               {}
func (CurrentLobbies) isCommand()          {}
func (SendLobbyInformation) isCommand()    {}
func (RemoveLobby) isCommand()             {}
func (SendConnectionCounts) isCommand()    {}
func (BroadcastLobbies) isCommand()        {}
func (AddClient) isCommand()               {}
func (RemoveClient) isCommand()            {}
func (SetLobbyCapacity) isCommand()        {}
