package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	qport "github.com/toji20/HomoChat/internal/infrastructure/queue/port"
	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
	"github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/adapter"
)

func strptr(s string) *string { return &s }

// fakeServer captures registered handlers so tests can invoke them directly.
type fakeServer struct {
	handlers map[string]qport.Handler
}

func newFakeServer() *fakeServer {
	return &fakeServer{handlers: make(map[string]qport.Handler)}
}

func (s *fakeServer) Register(taskType string, h qport.Handler) { s.handlers[taskType] = h }
func (s *fakeServer) Run(ctx context.Context) error             { <-ctx.Done(); return nil }
func (s *fakeServer) Stop(ctx context.Context) error            { return nil }

func repairTask(t *testing.T, conversationID, userID string) qport.Task {
	t.Helper()
	payload, err := json.Marshal(usecase.RepairIndexPayload{ConversationID: conversationID, UserID: userID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return qport.Task{Type: usecase.RepairIndexTaskType, Payload: payload}
}

func TestRepairRebuildsEntryFromLog(t *testing.T) {
	t.Parallel()

	repo := adapter.NewMemChatRepository()
	broker := push.NewBroker()
	ctx := context.Background()

	conv, _, _ := repo.OpenConversation(ctx, "alice", "bob")
	if _, err := repo.AppendMessage(ctx, chat.Message{ConversationID: conv.ID, SenderID: "alice", Body: strptr("first")}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	last, err := repo.AppendMessage(ctx, chat.Message{ConversationID: conv.ID, SenderID: "alice", Body: strptr("latest")})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	// Bob's entry is stale: it never saw either message (the simulated
	// partial upsert failure).
	srv := newFakeServer()
	RegisterRepairIndexTask(srv, repo, broker)
	handler := srv.handlers[usecase.RepairIndexTaskType]
	if handler == nil {
		t.Fatal("repair handler not registered")
	}

	sub, err := broker.Subscribe(ctx, push.IndexTopic("bob"), 8, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	if err := handler(ctx, repairTask(t, conv.ID, "bob")); err != nil {
		t.Fatalf("handler: %v", err)
	}

	entries, _ := repo.ListEntries(ctx, "bob")
	if len(entries) != 1 {
		t.Fatalf("bob has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LastMessage != "latest" || e.IsSeen || e.CounterpartID != "alice" {
		t.Fatalf("rebuilt entry = %+v", e)
	}
	if !e.UpdatedAt.Equal(last.CreatedAt) {
		t.Fatalf("entry timestamp = %v, want %v", e.UpdatedAt, last.CreatedAt)
	}

	select {
	case ev := <-sub.Events:
		if got := ev.Data.(chat.ChatListEntry); got.LastMessage != "latest" {
			t.Fatalf("published entry = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("repair did not publish the rebuilt entry")
	}
}

func TestRepairIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := adapter.NewMemChatRepository()
	ctx := context.Background()
	conv, _, _ := repo.OpenConversation(ctx, "alice", "bob")
	if _, err := repo.AppendMessage(ctx, chat.Message{ConversationID: conv.ID, SenderID: "bob", Body: strptr("hi")}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	srv := newFakeServer()
	RegisterRepairIndexTask(srv, repo, push.NewBroker())
	handler := srv.handlers[usecase.RepairIndexTaskType]

	for i := 0; i < 3; i++ {
		if err := handler(ctx, repairTask(t, conv.ID, "bob")); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	entries, _ := repo.ListEntries(ctx, "bob")
	if len(entries) != 1 {
		t.Fatalf("bob has %d entries after repeated repairs, want 1", len(entries))
	}
	// Bob sent the last message, so his side reads as seen.
	if !entries[0].IsSeen {
		t.Fatalf("entry = %+v, want seen", entries[0])
	}
}

func TestRepairDropsUnrepairableTasks(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	RegisterRepairIndexTask(srv, adapter.NewMemChatRepository(), push.NewBroker())
	handler := srv.handlers[usecase.RepairIndexTaskType]
	ctx := context.Background()

	// Malformed payloads and vanished conversations must not retry forever.
	if err := handler(ctx, qport.Task{Type: usecase.RepairIndexTaskType, Payload: []byte("{broken")}); err != nil {
		t.Fatalf("malformed payload: %v, want nil (drop)", err)
	}
	if err := handler(ctx, repairTask(t, "missing", "bob")); err != nil {
		t.Fatalf("missing conversation: %v, want nil (drop)", err)
	}
}

func TestRepairFreshConversationHasEmptyPreview(t *testing.T) {
	t.Parallel()

	repo := adapter.NewMemChatRepository()
	ctx := context.Background()
	conv, _, _ := repo.OpenConversation(ctx, "alice", "bob")

	srv := newFakeServer()
	RegisterRepairIndexTask(srv, repo, push.NewBroker())
	if err := srv.handlers[usecase.RepairIndexTaskType](ctx, repairTask(t, conv.ID, "alice")); err != nil {
		t.Fatalf("handler: %v", err)
	}

	entries, _ := repo.ListEntries(ctx, "alice")
	if len(entries) != 1 {
		t.Fatalf("alice has %d entries, want 1", len(entries))
	}
	if entries[0].LastMessage != "" || !entries[0].IsSeen {
		t.Fatalf("entry = %+v, want empty preview and seen", entries[0])
	}
}
