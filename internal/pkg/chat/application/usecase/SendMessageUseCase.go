package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	qport "github.com/toji20/HomoChat/internal/infrastructure/queue/port"
	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// RepairIndexTaskType is the queue task name for re-deriving one side of
// the chat index from the conversation log.
const RepairIndexTaskType = "index:repair"

// RepairIndexPayload is the JSON payload of a RepairIndexTaskType task.
type RepairIndexPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// SendMessageInput carries the data needed to send a new message.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Body           *string
	AttachmentURL  *string
}

// SendMessageUseCase is the write path of the synchronization engine:
// block check, durable append with a server-assigned sequence number,
// message fan-out, then the two-sided chat-index upsert with its own
// fan-out. The append is the commit point — once it succeeds the send
// has happened, and any index-side failure is healed asynchronously from
// the log rather than rolled back.
type SendMessageUseCase struct {
	Repo   repository.ChatRepository
	Broker *push.Broker
	Queue  qport.Client
}

func NewSendMessageUseCase(repo repository.ChatRepository, broker *push.Broker, queue qport.Client) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Broker: broker, Queue: queue}
}

// Execute sends a message. It is never retried automatically: a failure
// before the append means nothing was sent, a failure after it is
// confined to the index and repaired from the log.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("conversationId and senderId are required")
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(in.SenderID) {
		return nil, chat.ErrNotParticipant
	}
	counterpart := conv.Counterpart(in.SenderID)

	// Both block directions are evaluated against the store at call time,
	// never from flags cached when the conversation was opened.
	for _, pair := range [2][2]string{{in.SenderID, counterpart}, {counterpart, in.SenderID}} {
		blocked, err := uc.Repo.IsBlocked(ctx, pair[0], pair[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if blocked {
			return nil, chat.ErrBlocked
		}
	}

	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           in.Body,
		AttachmentURL:  in.AttachmentURL,
	})
	if err != nil {
		return nil, err
	}

	appended, err := uc.Repo.AppendMessage(ctx, *msg)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, chat.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Commit point passed: everything below converges state toward the
	// appended message but never un-sends it.
	uc.Broker.Publish(push.Event{
		Topic: push.ConversationTopic(conv.ID),
		Kind:  push.EventMessage,
		Data:  *appended,
	})

	var firstErr error
	for _, entry := range chat.EntriesOnSend(conv, appended) {
		if err := uc.Repo.UpsertEntry(ctx, entry); err != nil {
			if qerr := uc.enqueueRepair(ctx, conv.ID, entry.UserID); qerr != nil && firstErr == nil {
				firstErr = fmt.Errorf("%w: index update for %s: %v (repair enqueue: %v)", ErrPersistence, entry.UserID, err, qerr)
			}
			continue
		}
		uc.Broker.Publish(push.Event{
			Topic: push.IndexTopic(entry.UserID),
			Kind:  push.EventEntry,
			Data:  entry,
		})
	}
	if firstErr != nil {
		// The message is durably committed; the caller learns the index
		// may lag until an operator intervenes (queue was down too).
		return appended, firstErr
	}

	return appended, nil
}

func (uc *SendMessageUseCase) enqueueRepair(ctx context.Context, conversationID, userID string) error {
	if uc.Queue == nil {
		return fmt.Errorf("no queue configured")
	}
	payload, err := json.Marshal(RepairIndexPayload{ConversationID: conversationID, UserID: userID})
	if err != nil {
		return err
	}
	_, err = uc.Queue.Enqueue(ctx, qport.Task{Type: RepairIndexTaskType, Payload: payload},
		qport.EnqueueOption{Queue: "index", MaxRetry: 10})
	return err
}
