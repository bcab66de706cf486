package chathub

import (
	"context"
	"log"
	"sync"
)

// Manager tracks the connected attendant clients and builds consoles for them.
type Manager struct {
	deps ConsoleDeps

	mu      sync.RWMutex
	clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	done         chan struct{}
}

func NewManager(deps ConsoleDeps) *Manager {
	return &Manager{
		deps:         deps,
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		done:         make(chan struct{}),
	}
}

// NewConsole builds a console for attendantID with the manager's dependencies.
func (m *Manager) NewConsole(attendantID string, notifier Notifier) *Console {
	return NewConsole(attendantID, m.deps, notifier)
}

// Console returns the console of the attendant's connected client, or a fresh console
// that is not subscribed to anything when the attendant has no connection.
func (m *Manager) Console(attendantID string) *Console {
	if client, ok := m.Client(attendantID); ok {
		return client.Console()
	}
	return m.NewConsole(attendantID, nil)
}

func (m *Manager) Client(attendantID string) (Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[attendantID]
	return client, ok
}

// Count returns the number of connected attendants.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Register hands a client to the Run loop, which starts it.
func (m *Manager) Register(c Client) {
	select {
	case m.RegisterCh <- c:
	case <-m.done:
		c.Close()
	}
}

// Unregister hands a client to the Run loop, which closes it.
func (m *Manager) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Run serializes registrations until ctx is done, then closes every client.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return

		case client := <-m.RegisterCh:
			m.register(client)

		case client := <-m.UnregisterCh:
			m.unregister(client)
		}
	}
}

func (m *Manager) register(client Client) {
	id := client.GetUserID()

	// A new connection for the same attendant replaces the old one.
	if previous, exists := m.Client(id); exists && previous != client {
		log.Printf("Replacing connection of attendant %s", id)
		previous.Close()
	}

	m.mu.Lock()
	m.clients[id] = client
	m.mu.Unlock()
	client.Run()
	log.Printf("Attendant %s connected", id)
}

func (m *Manager) unregister(client Client) {
	id := client.GetUserID()

	m.mu.Lock()
	if current, ok := m.clients[id]; ok && current == client {
		delete(m.clients, id)
	}
	m.mu.Unlock()

	client.Close()
	log.Printf("Attendant %s disconnected", id)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]Client)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func(c Client) {
			defer wg.Done()
			c.Close()
		}(client)
	}
	wg.Wait()
}
