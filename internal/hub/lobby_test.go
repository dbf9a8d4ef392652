package hub

import (
	"testing"

	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/protocol"
)

func newTestPlayer(name string) *Player {
	return &Player{
		ID:   uuid.New(),
		Name: name,
		Out:  NewMailbox[protocol.Notification](),
	}
}

// drainCommands empties tx and returns the queued commands.
func drainCommands(tx *Mailbox[Command]) []Command {
	var cmds []Command
	for {
		cmd, ok := tx.TryReceive()
		if !ok {
			return cmds
		}
		cmds = append(cmds, cmd)
	}
}

func TestLobbyAddPlayerRosterBeforeJoinAnnouncement(t *testing.T) {
	tx := NewMailbox[Command]()
	lobby := NewLobby("alpha", 4)
	p1 := newTestPlayer("ada")
	p2 := newTestPlayer("bob")

	lobby.addPlayer(p1, tx)
	lobby.addPlayer(p2, tx)

	// The new player sees its roster snapshot first.
	n, ok := p2.Out.TryReceive()
	if !ok || n.Type != protocol.NoteRoster {
		t.Fatalf("expected roster as first notification for joiner, got %+v", n)
	}
	if len(n.Roster) != 2 {
		t.Errorf("expected roster of 2, got %d", len(n.Roster))
	}

	// The existing member sees the join announcement.
	n, ok = p1.Out.TryReceive() // p1's own roster from its join
	if !ok || n.Type != protocol.NoteRoster {
		t.Fatalf("expected p1's own roster first, got %+v", n)
	}
	n, ok = p1.Out.TryReceive()
	if !ok || n.Type != protocol.NotePlayerJoined {
		t.Fatalf("expected player-joined for p1, got %+v", n)
	}
	if n.Player == nil || n.Player.ID != p2.ID {
		t.Errorf("join announcement names wrong player: %+v", n.Player)
	}

	// Each admission emits discovery and count refreshes.
	cmds := drainCommands(tx)
	if len(cmds) != 4 {
		t.Fatalf("expected 4 follow-up commands, got %d (%v)", len(cmds), cmds)
	}
	if _, ok := cmds[0].(SendLobbyInformation); !ok {
		t.Errorf("expected SendLobbyInformation first, got %T", cmds[0])
	}
	if _, ok := cmds[1].(SendConnectionCounts); !ok {
		t.Errorf("expected SendConnectionCounts second, got %T", cmds[1])
	}
}

func TestLobbyAddPlayerRejectsWhenFull(t *testing.T) {
	tx := NewMailbox[Command]()
	lobby := NewLobby("tiny", 1)
	p1 := newTestPlayer("ada")
	p2 := newTestPlayer("bob")

	lobby.addPlayer(p1, tx)
	drainCommands(tx)

	lobby.addPlayer(p2, tx)

	if _, ok := lobby.Players[p2.ID]; ok {
		t.Error("rejected player must not be admitted")
	}
	if len(lobby.Players) != 1 {
		t.Errorf("expected membership unchanged at 1, got %d", len(lobby.Players))
	}

	cmds := drainCommands(tx)
	if len(cmds) != 1 {
		t.Fatalf("expected only a LobbyFull command, got %d", len(cmds))
	}
	full, ok := cmds[0].(LobbyFull)
	if !ok {
		t.Fatalf("expected LobbyFull, got %T", cmds[0])
	}
	if full.ReplyTo != p2.Out {
		t.Error("LobbyFull reply channel is not the rejected player's")
	}
	if _, ok := p2.Out.TryReceive(); ok {
		t.Error("rejected player must not receive lobby notifications directly")
	}
}

func TestLobbyRemoveLastPlayerEmitsRemoval(t *testing.T) {
	tx := NewMailbox[Command]()
	lobby := NewLobby("alpha", 4)
	p1 := newTestPlayer("ada")
	p2 := newTestPlayer("bob")

	lobby.addPlayer(p1, tx)
	lobby.addPlayer(p2, tx)
	drainCommands(tx)

	lobby.removePlayer(p1, tx)
	if len(lobby.Players) != 1 {
		t.Fatalf("expected 1 player left, got %d", len(lobby.Players))
	}
	cmds := drainCommands(tx)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 follow-ups for non-empty removal, got %d", len(cmds))
	}
	if _, ok := cmds[0].(SendLobbyInformation); !ok {
		t.Errorf("expected SendLobbyInformation, got %T", cmds[0])
	}

	lobby.removePlayer(p2, tx)
	cmds = drainCommands(tx)
	if len(cmds) != 2 {
		t.Fatalf("expected 2 follow-ups for emptying removal, got %d", len(cmds))
	}
	rm, ok := cmds[0].(RemoveLobby)
	if !ok {
		t.Fatalf("expected RemoveLobby once emptied, got %T", cmds[0])
	}
	if rm.LobbyID != lobby.ID {
		t.Error("RemoveLobby names the wrong lobby")
	}
}

func TestLobbySendMessageIncludesSender(t *testing.T) {
	tx := NewMailbox[Command]()
	lobby := NewLobby("alpha", 4)
	p1 := newTestPlayer("ada")
	p2 := newTestPlayer("bob")
	lobby.addPlayer(p1, tx)
	lobby.addPlayer(p2, tx)
	for _, p := range []*Player{p1, p2} {
		for {
			if _, ok := p.Out.TryReceive(); !ok {
				break
			}
		}
	}

	lobby.sendMessage(p1, "hello")

	for _, p := range []*Player{p1, p2} {
		n, ok := p.Out.TryReceive()
		if !ok || n.Type != protocol.NoteChat {
			t.Fatalf("expected chat for %s, got %+v", p.Name, n)
		}
		if n.From == nil || n.From.ID != p1.ID || n.Text != "hello" {
			t.Errorf("chat misattributed for %s: %+v", p.Name, n)
		}
	}
}

func TestLobbyReportsClosedMailboxes(t *testing.T) {
	tx := NewMailbox[Command]()
	lobby := NewLobby("alpha", 4)
	p1 := newTestPlayer("ada")
	p2 := newTestPlayer("bob")
	lobby.addPlayer(p1, tx)
	lobby.addPlayer(p2, tx)

	p2.Out.Close()
	failed := lobby.sendMessage(p1, "anyone there?")
	if len(failed) != 1 || failed[0].ID != p2.ID {
		t.Fatalf("expected p2 reported as failed, got %v", failed)
	}

	// Remaining recipients were still served.
	var sawChat bool
	for {
		n, ok := p1.Out.TryReceive()
		if !ok {
			break
		}
		if n.Type == protocol.NoteChat {
			sawChat = true
		}
	}
	if !sawChat {
		t.Error("delivery failure for one member must not abort the broadcast")
	}
}
