package chat

import (
	"testing"
	"time"
)

func TestPairKeyIsOrderInsensitive(t *testing.T) {
	t.Parallel()

	if PairKey("alice", "bob") != PairKey("bob", "alice") {
		t.Fatal("pair key differs by argument order")
	}
	if PairKey("alice", "bob") != "alice:bob" {
		t.Fatalf("pair key = %q", PairKey("alice", "bob"))
	}
}

func TestCounterpart(t *testing.T) {
	t.Parallel()

	c := Conversation{ID: "c1", ParticipantA: "alice", ParticipantB: "bob"}
	if got := c.Counterpart("alice"); got != "bob" {
		t.Fatalf("Counterpart(alice) = %q", got)
	}
	if got := c.Counterpart("bob"); got != "alice" {
		t.Fatalf("Counterpart(bob) = %q", got)
	}
	if got := c.Counterpart("mallory"); got != "" {
		t.Fatalf("Counterpart(outsider) = %q, want empty", got)
	}
	if c.HasParticipant("") {
		t.Fatal("empty user id counted as participant")
	}
}

func TestEntriesOnSend(t *testing.T) {
	t.Parallel()

	conv := &Conversation{ID: "c1", ParticipantA: "alice", ParticipantB: "bob"}
	now := time.Now().UTC()
	msg := &Message{ConversationID: "c1", SenderID: "alice", Body: strptr("hello"), CreatedAt: now}

	entries := EntriesOnSend(conv, msg)

	sender, counterpart := entries[0], entries[1]
	if sender.UserID != "alice" || !sender.IsSeen {
		t.Fatalf("sender entry = %+v, want alice/seen", sender)
	}
	if counterpart.UserID != "bob" || counterpart.IsSeen {
		t.Fatalf("counterpart entry = %+v, want bob/unseen", counterpart)
	}
	for i, e := range entries {
		if e.LastMessage != "hello" {
			t.Fatalf("entry %d preview = %q", i, e.LastMessage)
		}
		if !e.UpdatedAt.Equal(now) {
			t.Fatalf("entry %d timestamp = %v, want %v", i, e.UpdatedAt, now)
		}
		if e.ConversationID != "c1" {
			t.Fatalf("entry %d conversation = %q", i, e.ConversationID)
		}
	}
	if sender.CounterpartID != "bob" || counterpart.CounterpartID != "alice" {
		t.Fatal("counterpart ids not mirrored")
	}
}

func TestEntriesOnSendAttachmentOnly(t *testing.T) {
	t.Parallel()

	conv := &Conversation{ID: "c1", ParticipantA: "alice", ParticipantB: "bob"}
	msg := &Message{ConversationID: "c1", SenderID: "bob", AttachmentURL: strptr("/media/a.png"), CreatedAt: time.Now()}

	for i, e := range EntriesOnSend(conv, msg) {
		if e.LastMessage != ImagePreview {
			t.Fatalf("entry %d preview = %q, want %q", i, e.LastMessage, ImagePreview)
		}
	}
}
