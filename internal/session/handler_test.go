package session

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coterm/coterm/internal/hub"
	"github.com/coterm/coterm/internal/protocol"
)

func newTestSession() *Session {
	return &Session{
		ID:       uuid.New(),
		Out:      hub.NewMailbox[protocol.Notification](),
		Username: "ada",
	}
}

func TestCommandForRequestJoinFlow(t *testing.T) {
	sess := newTestSession()

	cmd, joined, err := commandForRequest(protocol.Request{Type: protocol.ReqQuickplay, Name: "Ada L."}, sess, nil)
	if err != nil {
		t.Fatalf("quickplay: %v", err)
	}
	qp, ok := cmd.(hub.AddPlayerViaQuickplay)
	if !ok {
		t.Fatalf("expected AddPlayerViaQuickplay, got %T", cmd)
	}
	if qp.Player.ID != sess.ID || qp.Player.Name != "Ada L." || qp.Player.Out != sess.Out {
		t.Errorf("player built wrong: %+v", qp.Player)
	}
	if joined == nil {
		t.Fatal("expected joined player tracked")
	}

	// A second join attempt on the same connection is rejected locally.
	if _, _, err := commandForRequest(protocol.Request{Type: protocol.ReqCreateLobby}, sess, joined); err == nil {
		t.Error("expected rejection of double join")
	}

	cmd, joined, err = commandForRequest(protocol.Request{Type: protocol.ReqChat, Text: "hi"}, sess, joined)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	msg, ok := cmd.(hub.SendMessage)
	if !ok || msg.Text != "hi" {
		t.Fatalf("expected SendMessage{hi}, got %#v", cmd)
	}

	cmd, joined, err = commandForRequest(protocol.Request{Type: protocol.ReqLeaveLobby}, sess, joined)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, ok := cmd.(hub.RemovePlayer); !ok {
		t.Fatalf("expected RemovePlayer, got %T", cmd)
	}
	if joined != nil {
		t.Error("expected joined player cleared after leave")
	}
}

func TestCommandForRequestNameFallsBackToUsername(t *testing.T) {
	sess := newTestSession()
	cmd, _, err := commandForRequest(protocol.Request{Type: protocol.ReqCreateLobby}, sess, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	create := cmd.(hub.CreateLobbyAndAddPlayer)
	if create.Player.Name != "ada" {
		t.Errorf("expected SSH username fallback, got %q", create.Player.Name)
	}
}

func TestCommandForRequestRejectsWithoutJoin(t *testing.T) {
	sess := newTestSession()
	for _, typ := range []protocol.RequestType{protocol.ReqChat, protocol.ReqLeaveLobby, protocol.ReqListPlayers} {
		if _, _, err := commandForRequest(protocol.Request{Type: typ}, sess, nil); err == nil {
			t.Errorf("expected %s to be rejected before joining", typ)
		}
	}
}

func TestCommandForRequestValidation(t *testing.T) {
	sess := newTestSession()
	if _, _, err := commandForRequest(protocol.Request{Type: protocol.ReqJoinLobby}, sess, nil); err == nil {
		t.Error("expected join without lobby id to be rejected")
	}
	if _, _, err := commandForRequest(protocol.Request{Type: "bogus"}, sess, nil); err == nil {
		t.Error("expected unknown request type to be rejected")
	}

	cmd, _, err := commandForRequest(protocol.Request{Type: protocol.ReqListLobbies}, sess, nil)
	if err != nil {
		t.Fatalf("list-lobbies: %v", err)
	}
	if list, ok := cmd.(hub.CurrentLobbies); !ok || list.ClientID != sess.ID {
		t.Errorf("expected CurrentLobbies for this client, got %#v", cmd)
	}
}

func TestEditorHostReleasesOnExit(t *testing.T) {
	host := NewEditorHost("cat")
	id := uuid.New()
	// cat exits as soon as it has printed the scratch file.
	if _, err := host.Open(id, 24, 80, []byte("done\n")); err != nil {
		t.Fatalf("open: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for host.Active() != 0 {
		select {
		case <-deadline:
			t.Fatal("editor was not released after its process exited")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestEditorHostCloseAll(t *testing.T) {
	host := NewEditorHost("sh")
	for i := 0; i < 2; i++ {
		if _, err := host.Open(uuid.New(), 24, 80, []byte("sleep 5\n")); err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
	}
	if host.Active() != 2 {
		t.Fatalf("expected 2 active editors, got %d", host.Active())
	}
	host.CloseAll()
	if host.Active() != 0 {
		t.Errorf("expected 0 active editors after CloseAll, got %d", host.Active())
	}
}
