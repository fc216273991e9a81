package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/othello-backend/internal/notify"
	"github.com/rocketscienceinc/othello-backend/internal/pkg"
	"github.com/rocketscienceinc/othello-backend/internal/usecase"
)

type handlerFunc func(ctx context.Context, conn *connection, message *Message) error

// Server - the push channel. Every socket is registered on the hub under a fresh connection id.
type Server struct {
	logger   *slog.Logger
	game     usecase.GameUseCase
	hub      *notify.Hub
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, game usecase.GameUseCase, hub *notify.Hub) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		game:   game,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionSubscribe] = server.handleSubscribe
	server.handlers[actionJoin] = server.handleJoin
	server.handlers[actionMove] = server.handleMove
	server.handlers[actionState] = server.handleState

	return server
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	ws, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	id := pkg.GenerateConnectionID()
	conn := newConnection(id, ws, that.hub.Register(id))
	log = log.With("connectionID", id)
	log.Info("WebSocket connection established")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := conn.writeLoop(); err != nil {
			log.Debug("writer stopped", "error", err)
		}
		_ = ws.Close()
	}()

	if err = conn.reply(actionConnect, ConnectPayload{ConnectionID: id}); err != nil {
		log.Error("failed to greet connection", "error", err)
	}

	that.readLoop(r.Context(), conn)

	close(conn.done)
	that.hub.Unregister(id)
	<-writerDone

	log.Info("WebSocket connection closed")
}

func (that *Server) readLoop(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "readLoop", "connectionID", conn.id)

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			that.replyError(conn, "", "invalid message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			that.replyError(conn, message.Action, "unknown action")
			continue
		}

		if err = handler(ctx, conn, &message); err != nil {
			log.Debug("action failed", "action", message.Action, "error", err)
			that.replyError(conn, message.Action, err.Error())
		}
	}
}

func (that *Server) replyError(conn *connection, action, reason string) {
	if err := conn.reply(actionError, ErrorPayload{Action: action, Error: reason}); err != nil {
		that.logger.Debug("failed to send error", "connectionID", conn.id, "error", err)
	}
}
