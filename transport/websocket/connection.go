package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/othello-backend/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 16
)

// connection - one client socket. Only writeLoop writes to ws.
type connection struct {
	id         string
	ws         *websocket.Conn
	subscriber *notify.Subscriber
	send       chan []byte
	done       chan struct{}
}

func newConnection(id string, ws *websocket.Conn, subscriber *notify.Subscriber) *connection {
	return &connection{
		id:         id,
		ws:         ws,
		subscriber: subscriber,
		send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
	}
}

// reply - queues a direct answer to this client, dropped once the connection is closing.
func (that *connection) reply(action string, payload any) error {
	message, err := encode(action, payload)
	if err != nil {
		return err
	}

	select {
	case that.send <- message:
		return nil
	case <-that.done:
		return fmt.Errorf("connection %s is closed", that.id)
	}
}

// writeLoop - forwards replies and match events, pings to keep the socket alive.
func (that *connection) writeLoop() error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-that.done:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = that.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return nil
		case message := <-that.send:
			if err := that.write(websocket.TextMessage, message); err != nil {
				return err
			}
		case event, ok := <-that.subscriber.Events():
			if !ok {
				return nil
			}

			message, err := json.Marshal(Message{Action: event.Action, Payload: event.Payload})
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}

			if err = that.write(websocket.TextMessage, message); err != nil {
				return err
			}
		case <-ticker.C:
			if err := that.write(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func (that *connection) write(messageType int, data []byte) error {
	if err := that.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.ws.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func encode(action string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	message, err := json.Marshal(Message{Action: action, Payload: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return message, nil
}
