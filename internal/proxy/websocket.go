// Package proxy exposes the live browser's CDP WebSocket while a session
// is in flight, so DevTools can watch the automation drive the page.
package proxy

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"pplxbridge/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	sessions *session.Manager
}

func NewServer(sessions *session.Manager) *Server {
	return &Server{sessions: sessions}
}

// HandleDebugConnection proxies a client WebSocket to the active browser's
// CDP endpoint. There is nothing to attach to between requests.
func (s *Server) HandleDebugConnection(w http.ResponseWriter, r *http.Request) {
	chromeURL, ok := s.sessions.ActiveConnectURL()
	if !ok {
		http.Error(w, "no session in flight", http.StatusConflict)
		return
	}

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("proxy: upgrade failed", "error", err)
		return
	}
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	chromeConn, _, err := websocket.DefaultDialer.DialContext(ctx, chromeURL, nil)
	if err != nil {
		log.Warn("proxy: CDP dial failed", "url", chromeURL, "error", err)
		clientConn.WriteMessage(websocket.TextMessage, []byte("error connecting to browser"))
		return
	}
	defer chromeConn.Close()

	log.Info("proxy: debug client attached", "cdp", chromeURL)

	errChan := make(chan error, 2)
	go func() { errChan <- proxyMessages(clientConn, chromeConn) }()
	go func() { errChan <- proxyMessages(chromeConn, clientConn) }()

	if err := <-errChan; err != nil && err != io.EOF {
		log.Debug("proxy: connection ended", "error", err)
	}
	log.Info("proxy: debug client detached")
}

func proxyMessages(src, dst *websocket.Conn) error {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			return err
		}
		if err := dst.WriteMessage(messageType, message); err != nil {
			return err
		}
	}
}
