package hub

import (
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/protocol"
)

// Player is a connected user that has joined a lobby. Users that have not
// joined anything are tracked only as clients.
type Player struct {
	ID   uuid.UUID
	Name string
	Out  *Mailbox[protocol.Notification]
}

// Info returns the wire representation of the player.
func (p *Player) Info() protocol.PlayerInfo {
	return protocol.PlayerInfo{ID: p.ID, Name: p.Name}
}

// Lobby is a bounded-capacity grouping of players sharing one collaborative
// session. All membership mutation happens through its methods, and only the
// hub goroutine calls them. A lobby never reaches into the hub's registries:
// when a mutation has consequences beyond its own membership it emits
// follow-up commands onto tx instead.
type Lobby struct {
	ID       uuid.UUID
	Name     string
	Capacity int
	Players  map[uuid.UUID]*Player
}

// NewLobby creates an empty lobby with the given display name and capacity.
func NewLobby(name string, capacity int) *Lobby {
	return &Lobby{
		ID:       uuid.New(),
		Name:     name,
		Capacity: capacity,
		Players:  make(map[uuid.UUID]*Player),
	}
}

// Info returns the discovery entry for the lobby.
func (l *Lobby) Info() protocol.LobbyInfo {
	return protocol.LobbyInfo{ID: l.ID, Name: l.Name, Players: len(l.Players)}
}

// roster returns the wire roster sorted by player name.
func (l *Lobby) roster() []protocol.PlayerInfo {
	result := make([]protocol.PlayerInfo, 0, len(l.Players))
	for _, p := range l.Players {
		result = append(result, p.Info())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// addPlayer admits p if capacity allows. The capacity check precedes any
// mutation; a rejected join leaves the lobby untouched and emits a LobbyFull
// reply for p. On success the new player receives its roster snapshot first,
// then the join is announced to the other members. Returns the players whose
// outbound mailboxes were already closed.
func (l *Lobby) addPlayer(p *Player, tx *Mailbox[Command]) []*Player {
	if len(l.Players) >= l.Capacity {
		log.Printf("INFO: Lobby %s is full. Rejecting player %s.", l.Name, p.Name)
		tx.Send(LobbyFull{ReplyTo: p.Out})
		return nil
	}

	l.Players[p.ID] = p
	log.Printf("INFO: Added player %s to lobby %s. Player count is %d.", p.Name, l.Name, len(l.Players))

	// Follow-up commands are emitted before any delivery so that a caller
	// reacting to a notification always enqueues behind them.
	tx.Send(SendLobbyInformation{LobbyID: l.ID})
	tx.Send(SendConnectionCounts{})

	var failed []*Player
	if err := p.Out.Send(protocol.Notification{Type: protocol.NoteRoster, Roster: l.roster()}); err != nil {
		log.Printf("WARN: Failed to send roster to player %s: %v", p.Name, err)
		failed = append(failed, p)
	}

	info := p.Info()
	for _, member := range l.Players {
		if member.ID == p.ID {
			continue
		}
		if err := member.Out.Send(protocol.Notification{Type: protocol.NotePlayerJoined, Player: &info}); err != nil {
			log.Printf("WARN: Failed to announce join to player %s: %v", member.Name, err)
			failed = append(failed, member)
		}
	}

	return failed
}

// removePlayer removes p and announces the departure to the remaining
// members. An emptied lobby emits its own removal. Returns the players
// whose outbound mailboxes were already closed.
func (l *Lobby) removePlayer(p *Player, tx *Mailbox[Command]) []*Player {
	delete(l.Players, p.ID)
	log.Printf("INFO: Removed player %s from lobby %s. Player count is %d.", p.Name, l.Name, len(l.Players))

	if len(l.Players) == 0 {
		tx.Send(RemoveLobby{LobbyID: l.ID})
	} else {
		tx.Send(SendLobbyInformation{LobbyID: l.ID})
	}
	tx.Send(SendConnectionCounts{})

	info := p.Info()
	var failed []*Player
	for _, member := range l.Players {
		if err := member.Out.Send(protocol.Notification{Type: protocol.NotePlayerLeft, Player: &info}); err != nil {
			log.Printf("WARN: Failed to announce departure to player %s: %v", member.Name, err)
			failed = append(failed, member)
		}
	}

	return failed
}

// sendMessage broadcasts a chat line from p to every member, the sender
// included so its own view stays consistent with everyone else's.
func (l *Lobby) sendMessage(p *Player, text string) []*Player {
	from := p.Info()
	var failed []*Player
	for _, member := range l.Players {
		if err := member.Out.Send(protocol.Notification{Type: protocol.NoteChat, From: &from, Text: text}); err != nil {
			log.Printf("WARN: Failed to deliver chat to player %s: %v", member.Name, err)
			failed = append(failed, member)
		}
	}
	return failed
}

// sendCurrentPlayers sends the roster snapshot to p alone, used on resync.
func (l *Lobby) sendCurrentPlayers(p *Player) []*Player {
	if err := p.Out.Send(protocol.Notification{Type: protocol.NoteRoster, Roster: l.roster()}); err != nil {
		log.Printf("WARN: Failed to send roster to player %s: %v", p.Name, err)
		return []*Player{p}
	}
	return nil
}
