// internal/api/room.go - 상태 스냅샷 웹소켓 브로드캐스트
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"boat-navigator/internal/models"
	"boat-navigator/internal/utils"

	"github.com/gorilla/websocket"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 16
	writeWait         = 5 * time.Second
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	socket *websocket.Conn
	send   chan []byte
}

// Room 연결된 클라이언트에 상태를 전달한다. 느린 클라이언트는 메시지를 잃는다
type Room struct {
	forward chan []byte
	join    chan *client
	leave   chan *client
	clients map[*client]bool
	count   chan chan int
	done    chan struct{}
}

// NewRoom 새 룸 생성. Run 이 돌아야 동작한다
func NewRoom() *Room {
	return &Room{
		forward: make(chan []byte, messageBufferSize),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		count:   make(chan chan int),
		done:    make(chan struct{}),
	}
}

// Run ctx 가 끝날 때까지 브로드캐스트
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			for c := range r.clients {
				close(c.send)
				delete(r.clients, c)
			}
			return
		case c := <-r.join:
			r.clients[c] = true
			utils.Logger.Infof("🔌 WS CLIENT JOINED (%d)", len(r.clients))
		case c := <-r.leave:
			if r.clients[c] {
				delete(r.clients, c)
				close(c.send)
				utils.Logger.Infof("🔌 WS CLIENT LEFT (%d)", len(r.clients))
			}
		case msg := <-r.forward:
			for c := range r.clients {
				select {
				case c.send <- msg:
				default:
					utils.Logger.Debugf("ws client buffer full, dropping status")
				}
			}
		case reply := <-r.count:
			reply <- len(r.clients)
		}
	}
}

// Clients 연결 수
func (r *Room) Clients() int {
	reply := make(chan int, 1)
	select {
	case r.count <- reply:
		return <-reply
	case <-r.done:
		return 0
	}
}

// PublishStatus control.StatusSink 구현. 큐가 차면 버린다
func (r *Room) PublishStatus(_ context.Context, status models.Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	select {
	case r.forward <- data:
	default:
	}
	return nil
}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		utils.Logger.Errorf("❌ WS UPGRADE FAILED: %v", err)
		return
	}
	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
	}
	select {
	case r.join <- c:
	case <-r.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- c:
		case <-r.done:
		}
	}()
	go c.write()
	c.read()
}

// read 클라이언트 메시지는 무시하고 연결 종료만 감지
func (c *client) read() {
	defer c.socket.Close()
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
