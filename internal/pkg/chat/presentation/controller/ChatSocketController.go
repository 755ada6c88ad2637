package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	"github.com/toji20/HomoChat/internal/infrastructure/realtime"
	chat "github.com/toji20/HomoChat/internal/pkg/chat/application/domain"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
)

// ChatSocketController handles the websocket endpoint for realtime chat
// traffic. Each socket is one device session: it receives the user's
// chat-index stream for its whole lifetime (snapshot first, then
// deltas) and, per joined conversation, the message stream the same
// way. Inbound frames drive the per-view state machine, so a send is
// only accepted while the view allows composing.
type ChatSocketController struct {
	registry        *realtime.Registry
	broker          *push.Broker
	repo            repository.ChatRepository
	openViewUC      *usecase.OpenViewUseCase
	sendMessageUC   *usecase.SendMessageUseCase
	markSeenUC      *usecase.MarkSeenUseCase
	log             *zap.Logger
	inflightTimeout time.Duration
}

func NewChatSocketController(
	registry *realtime.Registry,
	broker *push.Broker,
	repo repository.ChatRepository,
	openViewUC *usecase.OpenViewUseCase,
	sendMessageUC *usecase.SendMessageUseCase,
	markSeenUC *usecase.MarkSeenUseCase,
	log *zap.Logger,
) *ChatSocketController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatSocketController{
		registry:        registry,
		broker:          broker,
		repo:            repo,
		openViewUC:      openViewUC,
		sendMessageUC:   sendMessageUC,
		markSeenUC:      markSeenUC,
		log:             log,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

type inboundFrame struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversation_id,omitempty"`
	AfterSeq       int64   `json:"after_seq,omitempty"`
	Body           *string `json:"body,omitempty"`
	AttachmentURL  *string `json:"attachment_url,omitempty"`
}

type errorFrame struct {
	Type           string `json:"type"`
	Code           string `json:"code"`
	Error          string `json:"error"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	BlockedPeer    bool   `json:"blocked_peer,omitempty"`
	BlockedByPeer  bool   `json:"blocked_by_peer,omitempty"`
	Seq            int64  `json:"seq,omitempty"`
	IndexPending   bool   `json:"index_pending,omitempty"`
}

type messageFrame struct {
	Type    string         `json:"type"`
	Message messagePayload `json:"message"`
}

type messagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Seq            int64     `json:"seq"`
	Body           *string   `json:"body,omitempty"`
	AttachmentURL  *string   `json:"attachment_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type entryFrame struct {
	Type  string       `json:"type"`
	Entry entryPayload `json:"entry"`
}

type entryPayload struct {
	ConversationID string    `json:"conversation_id"`
	CounterpartID  string    `json:"counterpart_id"`
	LastMessage    string    `json:"last_message"`
	IsSeen         bool      `json:"is_seen"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const defaultReadTimeout = 60 * time.Second

// joinedView is one conversation this socket currently has selected:
// the view state machine plus the live message subscription.
type joinedView struct {
	view *chat.ConversationView
	sub  *push.Subscription
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			ctl.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.registry.Attach(conn)

		// Views are touched only by this read loop; forwarders just drain
		// subscription channels into the connection.
		views := make(map[string]*joinedView)
		defer func() {
			for _, jv := range views {
				jv.view.Close()
				jv.sub.Cancel()
			}
			ctl.registry.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		// Index stream for the whole socket lifetime: current entries as a
		// snapshot, then every delta in publish order.
		indexSub, err := ctl.broker.Subscribe(c.Request.Context(), push.IndexTopic(userID), 0, ctl.indexSnapshot(userID))
		if err != nil {
			ctl.replyError(conn, "internal_error", "index subscription failed", "")
			return
		}
		defer indexSub.Cancel()
		go ctl.forward(conn, indexSub)

		ctl.reply(conn, ackFrame{Type: "connected"})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.replyError(conn, "read_error", err.Error(), "")
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload", "")
				continue
			}

			switch frame.Type {
			case "join":
				ctl.handleJoin(c, conn, views, frame)
			case "leave":
				ctl.handleLeave(conn, views, frame)
			case "message":
				ctl.handleMessage(c, conn, views, frame)
			case "seen":
				ctl.handleSeen(c, conn, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type", "")
			}
		}
	}
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, views map[string]*joinedView, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	view, err := ctl.openViewUC.Execute(ctx, usecase.OpenViewInput{
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err, frame.ConversationID)
		return
	}

	// Re-joining an already selected conversation replaces the previous
	// view and subscription, so the block flags are always fresh.
	if prev, ok := views[frame.ConversationID]; ok {
		prev.view.Close()
		prev.sub.Cancel()
		delete(views, frame.ConversationID)
	}

	sub, err := ctl.broker.Subscribe(c.Request.Context(), push.ConversationTopic(frame.ConversationID), 0,
		ctl.messageSnapshot(frame.ConversationID, frame.AfterSeq))
	if err != nil {
		view.Close()
		ctl.replyError(conn, "internal_error", "message subscription failed", frame.ConversationID)
		return
	}
	views[frame.ConversationID] = &joinedView{view: view, sub: sub}
	go ctl.forward(conn, sub)

	status := view.Blocks
	ctl.reply(conn, ackFrame{
		Type:           "joined",
		ConversationID: frame.ConversationID,
		BlockedPeer:    status.BlockedPeer,
		BlockedByPeer:  status.BlockedByPeer,
	})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, views map[string]*joinedView, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required", "")
		return
	}
	if jv, ok := views[frame.ConversationID]; ok {
		jv.view.Close()
		jv.sub.Cancel()
		delete(views, frame.ConversationID)
	}
	ctl.reply(conn, ackFrame{Type: "left", ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleMessage(c *gin.Context, conn *realtime.Connection, views map[string]*joinedView, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required", "")
		return
	}
	jv, ok := views[frame.ConversationID]
	if !ok {
		ctl.replyError(conn, "not_joined", "join the conversation before sending", frame.ConversationID)
		return
	}

	if err := jv.view.BeginSend(frame.Body, frame.AttachmentURL); err != nil {
		ctl.handleUseCaseError(conn, err, frame.ConversationID)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       conn.UserID,
		Body:           frame.Body,
		AttachmentURL:  frame.AttachmentURL,
	})
	if err != nil && msg == nil {
		jv.view.FailSend()
		ctl.handleUseCaseError(conn, err, frame.ConversationID)
		return
	}
	jv.view.FinishSend()

	// The message itself arrives on the conversation stream; the ack
	// only confirms the assigned sequence number.
	ack := ackFrame{Type: "sent", ConversationID: frame.ConversationID, Seq: msg.Seq}
	if err != nil {
		// Append committed but the chat-list projection lagged and the
		// repair enqueue failed; a later repair will converge it.
		ctl.log.Warn("chat index update deferred",
			zap.String("conversation_id", frame.ConversationID),
			zap.String("sender_id", conn.UserID),
			zap.Error(err))
		ack.IndexPending = true
	}
	ctl.reply(conn, ack)
}

func (ctl *ChatSocketController) handleSeen(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	err := ctl.markSeenUC.Execute(ctx, usecase.MarkSeenInput{
		UserID:         conn.UserID,
		ConversationID: frame.ConversationID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err, frame.ConversationID)
		return
	}
	ctl.reply(conn, ackFrame{Type: "seen", ConversationID: frame.ConversationID})
}

// indexSnapshot materializes the user's current chat-index entries as
// the subscription's opening events.
func (ctl *ChatSocketController) indexSnapshot(userID string) push.SnapshotFunc {
	return func(ctx context.Context) ([]push.Event, error) {
		entries, err := ctl.repo.ListEntries(ctx, userID)
		if err != nil {
			return nil, err
		}
		events := make([]push.Event, 0, len(entries))
		for _, e := range entries {
			events = append(events, push.Event{Topic: push.IndexTopic(userID), Kind: push.EventEntry, Data: e})
		}
		return events, nil
	}
}

// messageSnapshot materializes the messages a rejoining client missed,
// everything after the last sequence number it acknowledged.
func (ctl *ChatSocketController) messageSnapshot(conversationID string, afterSeq int64) push.SnapshotFunc {
	return func(ctx context.Context) ([]push.Event, error) {
		msgs, err := ctl.repo.Messages(ctx, conversationID, afterSeq, 0)
		if err != nil {
			return nil, err
		}
		events := make([]push.Event, 0, len(msgs))
		for _, m := range msgs {
			events = append(events, push.Event{Topic: push.ConversationTopic(conversationID), Kind: push.EventMessage, Data: m})
		}
		return events, nil
	}
}

// forward drains a subscription into the connection until either side
// closes. Duplicates across snapshot and deltas are possible; clients
// reconcile by sequence number.
func (ctl *ChatSocketController) forward(conn *realtime.Connection, sub *push.Subscription) {
	for {
		select {
		case <-conn.Done():
			sub.Cancel()
			return
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			payload, err := encodeEvent(ev)
			if err != nil {
				ctl.log.Warn("failed to encode event", zap.Error(err))
				continue
			}
			if payload == nil {
				continue
			}
			if conn.Send(payload) != nil {
				sub.Cancel()
				return
			}
		}
	}
}

func encodeEvent(ev push.Event) ([]byte, error) {
	switch data := ev.Data.(type) {
	case chat.Message:
		return json.Marshal(messageFrame{Type: "message", Message: messagePayload{
			ID:             data.ID,
			ConversationID: data.ConversationID,
			SenderID:       data.SenderID,
			Seq:            data.Seq,
			Body:           data.Body,
			AttachmentURL:  data.AttachmentURL,
			CreatedAt:      data.CreatedAt,
		}})
	case chat.ChatListEntry:
		return json.Marshal(entryFrame{Type: "entry", Entry: entryPayload{
			ConversationID: data.ConversationID,
			CounterpartID:  data.CounterpartID,
			LastMessage:    data.LastMessage,
			IsSeen:         data.IsSeen,
			UpdatedAt:      data.UpdatedAt,
		}})
	default:
		return nil, nil
	}
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error, conversationID string) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		ctl.replyError(conn, "internal_error", "unexpected persistence error", conversationID)
	case errors.Is(err, chat.ErrNotParticipant):
		ctl.replyError(conn, "forbidden", "user is not a participant in this conversation", conversationID)
	case errors.Is(err, chat.ErrBlocked):
		ctl.replyError(conn, "blocked", "sending is blocked between these users", conversationID)
	case errors.Is(err, chat.ErrNotFound):
		ctl.replyError(conn, "not_found", "conversation not found", conversationID)
	case errors.Is(err, chat.ErrSendInFlight):
		ctl.replyError(conn, "send_in_flight", "a send is already in progress", conversationID)
	default:
		ctl.replyError(conn, "bad_request", err.Error(), conversationID)
	}
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, frame ackFrame) {
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code, message, conversationID string) {
	frame := errorFrame{Type: "error", Code: code, Error: message, ConversationID: conversationID}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
