package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/toji20/HomoChat/internal/infrastructure/push"
	qport "github.com/toji20/HomoChat/internal/infrastructure/queue/port"
	"github.com/toji20/HomoChat/internal/infrastructure/realtime"
	"github.com/toji20/HomoChat/internal/pkg/chat/application/usecase"
	"github.com/toji20/HomoChat/internal/pkg/chat/presentation/controller"
	repository "github.com/toji20/HomoChat/internal/pkg/chat/persistence/repository/port"
	"github.com/toji20/HomoChat/internal/pkg/media"
	userport "github.com/toji20/HomoChat/internal/repository/port"
)

// Deps bundles the collaborators the chat endpoints need. Adapters are
// chosen by the caller; the routes only see the ports.
type Deps struct {
	Repo     repository.ChatRepository
	Users    userport.UserRepository
	Broker   *push.Broker
	Queue    qport.Client
	Registry *realtime.Registry
	Media    *media.Coordinator
	Log      *zap.Logger
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d Deps) {
	openUC := usecase.NewOpenConversationUseCase(d.Repo, d.Users, d.Broker)
	sendUC := usecase.NewSendMessageUseCase(d.Repo, d.Broker, d.Queue)
	getMsgUC := usecase.NewGetMessageUseCase(d.Repo)
	listUC := usecase.NewListChatsUseCase(d.Repo, d.Users)
	seenUC := usecase.NewMarkSeenUseCase(d.Repo, d.Broker)
	blockUC := usecase.NewSetBlockUseCase(d.Repo)
	searchUC := usecase.NewSearchUserUseCase(d.Users)
	avatarUC := usecase.NewUpdateAvatarUseCase(d.Users, d.Media)
	viewUC := usecase.NewOpenViewUseCase(d.Repo)

	openCtl := controller.NewOpenConversationController(openUC)
	sendCtl := controller.NewSendMessageController(sendUC, d.Log)
	getMsgCtl := controller.NewGetMessageController(getMsgUC)
	listCtl := controller.NewListChatsController(listUC)
	seenCtl := controller.NewMarkSeenController(seenUC)
	blockCtl := controller.NewSetBlockController(blockUC)
	searchCtl := controller.NewSearchUserController(searchUC)
	avatarCtl := controller.NewAvatarController(avatarUC)
	socketCtl := controller.NewChatSocketController(d.Registry, d.Broker, d.Repo, viewUC, sendUC, seenUC, d.Log)

	// POST /api/v1/chats -> open (or return) the conversation for a pair
	g.POST("/chats", openCtl.Handle())

	// GET /api/v1/chats?user_id= -> hydrated chat list
	g.GET("/chats", listCtl.Handle())

	// POST /api/v1/chats/:chatId/messages -> send a message
	g.POST("/chats/:chatId/messages", sendCtl.Handle())

	// GET /api/v1/chats/:chatId/messages?after_seq=&limit= -> fetch messages
	g.GET("/chats/:chatId/messages", getMsgCtl.Handle())

	// POST /api/v1/chats/:chatId/seen -> mark one chat-list entry seen
	g.POST("/chats/:chatId/seen", seenCtl.Handle())

	// POST /api/v1/blocks -> block or unblock a user
	g.POST("/blocks", blockCtl.Handle())

	// GET /api/v1/users?username= -> exact-username lookup
	g.GET("/users", searchCtl.Handle())

	// POST /api/v1/users/:userId/avatar -> multipart avatar upload
	g.POST("/users/:userId/avatar", avatarCtl.Handle())

	// GET /api/v1/chats/ws -> websocket endpoint for realtime chat
	g.GET("/chats/ws", socketCtl.Handle())
}
