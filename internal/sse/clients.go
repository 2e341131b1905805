// Package sse keeps the open Server-Sent Events streams and fans content events out to them.
package sse

import (
	"sync"

	"github.com/debemdeboas/site-editor/internal/model"
)

const clientBuffer = 8

// Client is one open event stream. An empty Section subscribes to every section.
type Client struct {
	Msg     chan string
	Section model.SectionKey
}

func NewClient(section model.SectionKey) *Client {
	return &Client{Msg: make(chan string, clientBuffer), Section: section}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Msg)
	}
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to the clients watching section. Slow clients miss the message
// rather than block the sender.
func (s *SSEClients) Broadcast(section model.SectionKey, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Section == "" || client.Section == section {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}
