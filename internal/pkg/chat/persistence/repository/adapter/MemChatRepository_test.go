package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
)

func strptr(s string) *string { return &s }

func TestMemOpenConversationIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := NewMemChatRepository()
	ctx := context.Background()

	first, created, err := repo.OpenConversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("OpenConversation: %v", err)
	}
	if !created {
		t.Fatal("first open did not create")
	}

	// Argument order must not matter.
	second, created, err := repo.OpenConversation(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("OpenConversation: %v", err)
	}
	if created {
		t.Fatal("second open created a duplicate")
	}
	if first.ID != second.ID {
		t.Fatalf("conversation ids differ: %s vs %s", first.ID, second.ID)
	}

	// Creation also wrote exactly one index entry per participant.
	for _, u := range []string{"alice", "bob"} {
		entries, err := repo.ListEntries(ctx, u)
		if err != nil {
			t.Fatalf("ListEntries(%s): %v", u, err)
		}
		if len(entries) != 1 {
			t.Fatalf("%s has %d entries, want 1", u, len(entries))
		}
		if entries[0].ConversationID != first.ID || !entries[0].IsSeen {
			t.Fatalf("%s entry = %+v", u, entries[0])
		}
	}
}

func TestMemOpenConversationConcurrent(t *testing.T) {
	t.Parallel()

	repo := NewMemChatRepository()
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	createdCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, created, err := repo.OpenConversation(ctx, a, b)
			if err != nil {
				t.Errorf("OpenConversation: %v", err)
				return
			}
			mu.Lock()
			ids[i] = conv.ID
			if created {
				createdCount++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if createdCount != 1 {
		t.Fatalf("created %d conversations, want 1", createdCount)
	}
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("open %d resolved to %s, open 0 to %s", i, ids[i], ids[0])
		}
	}
}

func TestMemAppendAssignsMonotonicSeq(t *testing.T) {
	t.Parallel()

	repo := NewMemChatRepository()
	ctx := context.Background()
	conv, _, err := repo.OpenConversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("OpenConversation: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AppendMessage(ctx, chat.Message{
				ConversationID: conv.ID,
				SenderID:       "alice",
				Body:           strptr("hi"),
			})
			if err != nil {
				t.Errorf("AppendMessage: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, err := repo.Messages(ctx, conv.ID, 0, n)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != n {
		t.Fatalf("got %d messages, want %d", len(msgs), n)
	}
	for i, m := range msgs {
		if m.Seq != int64(i+1) {
			t.Fatalf("message %d has seq %d; sequence must be gapless and ascending", i, m.Seq)
		}
	}
}

func TestMemMessagesAfterSeq(t *testing.T) {
	t.Parallel()

	repo := NewMemChatRepository()
	ctx := context.Background()
	conv, _, _ := repo.OpenConversation(ctx, "alice", "bob")
	for i := 0; i < 5; i++ {
		if _, err := repo.AppendMessage(ctx, chat.Message{ConversationID: conv.ID, SenderID: "alice", Body: strptr("m")}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	msgs, err := repo.Messages(ctx, conv.ID, 3, 10)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Seq != 4 || msgs[1].Seq != 5 {
		t.Fatalf("after_seq=3 returned %+v", msgs)
	}

	if _, err := repo.Messages(ctx, "missing", 0, 10); !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemUpsertEntryPerKeyIsolation(t *testing.T) {
	t.Parallel()

	repo := NewMemChatRepository()
	ctx := context.Background()

	// Concurrent upserts for different keys must not clobber each other.
	var wg sync.WaitGroup
	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		for c := 0; c < 5; c++ {
			wg.Add(1)
			go func(u string, c int) {
				defer wg.Done()
				err := repo.UpsertEntry(ctx, chat.ChatListEntry{
					UserID:         u,
					ConversationID: "conv" + string(rune('0'+c)),
					CounterpartID:  "peer",
					LastMessage:    "hello",
				})
				if err != nil {
					t.Errorf("UpsertEntry: %v", err)
				}
			}(u, c)
		}
	}
	wg.Wait()

	for _, u := range users {
		entries, err := repo.ListEntries(ctx, u)
		if err != nil {
			t.Fatalf("ListEntries(%s): %v", u, err)
		}
		if len(entries) != 5 {
			t.Fatalf("user %s has %d entries, want 5", u, len(entries))
		}
	}
}

func TestMemMarkSeen(t *testing.T) {
	t.Parallel()

	repo := NewMemChatRepository()
	ctx := context.Background()

	entry := chat.ChatListEntry{UserID: "bob", ConversationID: "c1", CounterpartID: "alice", LastMessage: "hi", IsSeen: false}
	if err := repo.UpsertEntry(ctx, entry); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	other := chat.ChatListEntry{UserID: "bob", ConversationID: "c2", CounterpartID: "carol", LastMessage: "yo", IsSeen: false}
	if err := repo.UpsertEntry(ctx, other); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	if err := repo.MarkSeen(ctx, "bob", "c1"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	entries, _ := repo.ListEntries(ctx, "bob")
	for _, e := range entries {
		switch e.ConversationID {
		case "c1":
			if !e.IsSeen {
				t.Fatal("marked entry still unseen")
			}
		case "c2":
			if e.IsSeen {
				t.Fatal("mark-seen leaked onto an unrelated entry")
			}
		}
	}

	if err := repo.MarkSeen(ctx, "bob", "missing"); !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemBlocks(t *testing.T) {
	t.Parallel()

	repo := NewMemChatRepository()
	ctx := context.Background()

	if err := repo.SetBlock(ctx, "alice", "bob", true); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}

	blocked, err := repo.IsBlocked(ctx, "alice", "bob")
	if err != nil || !blocked {
		t.Fatalf("IsBlocked(alice->bob) = %v, %v; want true", blocked, err)
	}
	// Direction matters.
	blocked, err = repo.IsBlocked(ctx, "bob", "alice")
	if err != nil || blocked {
		t.Fatalf("IsBlocked(bob->alice) = %v, %v; want false", blocked, err)
	}

	if err := repo.SetBlock(ctx, "alice", "bob", false); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	blocked, _ = repo.IsBlocked(ctx, "alice", "bob")
	if blocked {
		t.Fatal("unblock did not clear the edge")
	}
}
