package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/adapter"
)

func TestMarkSeenFlipsOnlyTargetEntry(t *testing.T) {
	t.Parallel()

	repo := adapter.NewMemChatRepository()
	broker := push.NewBroker()
	ctx := context.Background()

	for _, e := range []chat.ChatListEntry{
		{UserID: "bob", ConversationID: "c1", CounterpartID: "alice", LastMessage: "hi", IsSeen: false},
		{UserID: "bob", ConversationID: "c2", CounterpartID: "carol", LastMessage: "yo", IsSeen: false},
		{UserID: "alice", ConversationID: "c1", CounterpartID: "bob", LastMessage: "hi", IsSeen: false},
	} {
		if err := repo.UpsertEntry(ctx, e); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}

	sub, err := broker.Subscribe(ctx, push.IndexTopic("bob"), 8, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	uc := NewMarkSeenUseCase(repo, broker)
	if err := uc.Execute(ctx, MarkSeenInput{UserID: "bob", ConversationID: "c1"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries, _ := repo.ListEntries(ctx, "bob")
	for _, e := range entries {
		if e.ConversationID == "c1" && !e.IsSeen {
			t.Fatal("target entry still unseen")
		}
		if e.ConversationID == "c2" && e.IsSeen {
			t.Fatal("unrelated conversation entry flipped")
		}
	}
	// The other participant's projection of c1 is untouched.
	aliceEntries, _ := repo.ListEntries(ctx, "alice")
	if len(aliceEntries) != 1 || aliceEntries[0].IsSeen {
		t.Fatalf("alice entries = %+v; mark-seen leaked across users", aliceEntries)
	}

	// Bob's other devices hear about the change.
	ev := drain(t, sub.Events, 1)[0]
	entry := ev.Data.(chat.ChatListEntry)
	if entry.ConversationID != "c1" || !entry.IsSeen {
		t.Fatalf("published entry = %+v", entry)
	}
}

func TestConcurrentSendAndMarkSeenDoNotCorruptEntries(t *testing.T) {
	t.Parallel()

	repo := adapter.NewMemChatRepository()
	broker := push.NewBroker()
	ctx := context.Background()

	// Alice talks to bob in one conversation and to carol in another;
	// sends and seen-flips race from her two devices.
	convBob, _, _ := repo.OpenConversation(ctx, "alice", "bob")
	convCarol, _, _ := repo.OpenConversation(ctx, "alice", "carol")

	send := NewSendMessageUseCase(repo, broker, nil)
	seen := NewMarkSeenUseCase(repo, broker)

	if _, err := send.Execute(ctx, SendMessageInput{ConversationID: convCarol.ID, SenderID: "carol", Body: strptr("ping")}); err != nil {
		t.Fatalf("seed send: %v", err)
	}

	done := make(chan error, 2)
	go func() {
		var err error
		for i := 0; i < 20 && err == nil; i++ {
			_, err = send.Execute(ctx, SendMessageInput{ConversationID: convBob.ID, SenderID: "alice", Body: strptr("hi")})
		}
		done <- err
	}()
	go func() {
		var err error
		for i := 0; i < 20 && err == nil; i++ {
			err = seen.Execute(ctx, MarkSeenInput{UserID: "alice", ConversationID: convCarol.ID})
		}
		done <- err
	}()
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent op: %v", err)
		}
	}

	entries, _ := repo.ListEntries(ctx, "alice")
	if len(entries) != 2 {
		t.Fatalf("alice has %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		switch e.ConversationID {
		case convBob.ID:
			if e.LastMessage != "hi" || !e.IsSeen {
				t.Fatalf("bob-side entry corrupted: %+v", e)
			}
		case convCarol.ID:
			if e.LastMessage != "ping" || !e.IsSeen {
				t.Fatalf("carol-side entry corrupted: %+v", e)
			}
		}
	}
}

func TestMarkSeenMissingEntry(t *testing.T) {
	t.Parallel()

	uc := NewMarkSeenUseCase(adapter.NewMemChatRepository(), push.NewBroker())
	err := uc.Execute(context.Background(), MarkSeenInput{UserID: "bob", ConversationID: "missing"})
	if !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
