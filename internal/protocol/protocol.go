// Package protocol defines the wire types exchanged between the coterm
// server and its clients. Messages are encoded as newline-delimited JSON
// over the SSH channel: clients send Requests, the server sends
// Notifications.
package protocol

import "github.com/google/uuid"

// RequestType discriminates client requests.
type RequestType string

const (
	// ReqCreateLobby creates a new lobby and joins it.
	ReqCreateLobby RequestType = "create-lobby"
	// ReqQuickplay joins any lobby with free capacity, creating one if needed.
	ReqQuickplay RequestType = "quickplay"
	// ReqJoinLobby joins the lobby named by LobbyID.
	ReqJoinLobby RequestType = "join-lobby"
	// ReqLeaveLobby leaves the current lobby.
	ReqLeaveLobby RequestType = "leave-lobby"
	// ReqChat broadcasts Text to the current lobby.
	ReqChat RequestType = "chat"
	// ReqListLobbies requests a discovery snapshot of all lobbies.
	ReqListLobbies RequestType = "list-lobbies"
	// ReqListPlayers requests the roster of the lobby named by LobbyID.
	ReqListPlayers RequestType = "list-players"
)

// Request is a single client request. Fields beyond Type are populated
// depending on the request kind.
type Request struct {
	Type    RequestType `json:"type"`
	LobbyID uuid.UUID   `json:"lobbyId,omitempty"`
	Name    string      `json:"name,omitempty"`
	Text    string      `json:"text,omitempty"`
}

// NotificationType discriminates server notifications.
type NotificationType string

const (
	// NoteRoster carries the full roster of the recipient's lobby.
	NoteRoster NotificationType = "roster"
	// NotePlayerJoined announces that Player joined the recipient's lobby.
	NotePlayerJoined NotificationType = "player-joined"
	// NotePlayerLeft announces that Player left the recipient's lobby.
	NotePlayerLeft NotificationType = "player-left"
	// NoteChat carries a chat line attributed to From.
	NoteChat NotificationType = "chat"
	// NoteLobbies carries a discovery snapshot of all lobbies.
	NoteLobbies NotificationType = "lobbies"
	// NoteLobbyInfo carries a discovery update for a single lobby.
	NoteLobbyInfo NotificationType = "lobby-info"
	// NoteLobbyFull tells the recipient its join attempt was rejected.
	NoteLobbyFull NotificationType = "lobby-full"
	// NoteConnectionCounts carries the global client/player counts.
	NoteConnectionCounts NotificationType = "connection-counts"
)

// PlayerInfo identifies a player on the wire.
type PlayerInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// LobbyInfo is one entry of the discovery view.
type LobbyInfo struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Players int       `json:"players"`
}

// ConnectionCounts is the global connection tally broadcast to every client.
type ConnectionCounts struct {
	Clients int `json:"clients"`
	Players int `json:"players"`
}

// Notification is a single server-to-client message. Fields beyond Type are
// populated depending on the notification kind.
type Notification struct {
	Type    NotificationType  `json:"type"`
	Roster  []PlayerInfo      `json:"roster,omitempty"`
	Player  *PlayerInfo       `json:"player,omitempty"`
	From    *PlayerInfo       `json:"from,omitempty"`
	Text    string            `json:"text,omitempty"`
	Lobbies []LobbyInfo       `json:"lobbies,omitempty"`
	Lobby   *LobbyInfo        `json:"lobby,omitempty"`
	Counts  *ConnectionCounts `json:"counts,omitempty"`
}
