package usecase

import (
	"context"
	"testing"
	"time"

	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/adapter"
	useradapter "github.com/toji20/HomoChat/internal/repository/adapter"
	userport "github.com/toji20/HomoChat/internal/repository/port"
)

func TestListChatsHydratesProfiles(t *testing.T) {
	t.Parallel()

	repo := adapter.NewMemChatRepository()
	users := useradapter.NewMemUserRepository(
		userport.User{ID: "bob", Username: "bob", AvatarURL: "/media/bob.png"},
	)
	ctx := context.Background()

	now := time.Now().UTC()
	entries := []chat.ChatListEntry{
		{UserID: "alice", ConversationID: "c1", CounterpartID: "bob", LastMessage: "hi", IsSeen: false, UpdatedAt: now},
		// carol has no profile record; the row degrades, the list survives.
		{UserID: "alice", ConversationID: "c2", CounterpartID: "carol", LastMessage: "yo", IsSeen: true, UpdatedAt: now.Add(-time.Hour)},
	}
	for _, e := range entries {
		if err := repo.UpsertEntry(ctx, e); err != nil {
			t.Fatalf("UpsertEntry: %v", err)
		}
	}

	uc := NewListChatsUseCase(repo, users)
	items, err := uc.Execute(ctx, ListChatsInput{UserID: "alice"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	byConv := make(map[string]ChatListItem)
	for _, it := range items {
		byConv[it.Entry.ConversationID] = it
	}
	if hydrated := byConv["c1"].Counterpart; hydrated == nil || hydrated.Username != "bob" {
		t.Fatalf("c1 counterpart = %+v", hydrated)
	}
	if byConv["c2"].Counterpart != nil {
		t.Fatalf("c2 counterpart = %+v, want nil for missing profile", byConv["c2"].Counterpart)
	}
}

func TestListChatsEmpty(t *testing.T) {
	t.Parallel()

	uc := NewListChatsUseCase(adapter.NewMemChatRepository(), useradapter.NewMemUserRepository())
	items, err := uc.Execute(context.Background(), ListChatsInput{UserID: "nobody"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("got %d items, want 0", len(items))
	}
}
