package chathub_test

import (
	"context"
	"testing"
	"time"

	"livechat/backend/internal/chathub"

	"github.com/stretchr/testify/assert"
)

func TestManager_RegisterUnregister(t *testing.T) {
	hub := chathub.NewManager(chathub.ConsoleDeps{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	clientA := newMockClient("user_A")
	clientA.On("Run").Return()
	clientA.On("Close").Return()

	hub.Register(clientA)
	assert.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	got, ok := hub.Client("user_A")
	assert.True(t, ok)
	assert.Same(t, clientA, got)

	hub.Unregister(clientA)
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
	clientA.AssertCalled(t, "Run")
	clientA.AssertCalled(t, "Close")
}

func TestManager_NewConnectionReplacesOld(t *testing.T) {
	hub := chathub.NewManager(chathub.ConsoleDeps{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := newMockClient("A1")
	first.On("Run").Return()
	first.On("Close").Return()
	second := newMockClient("A1")
	second.On("Run").Return()
	second.On("Close").Return()

	hub.Register(first)
	hub.Register(second)

	assert.Eventually(t, func() bool {
		c, ok := hub.Client("A1")
		return ok && c == chathub.Client(second)
	}, time.Second, 10*time.Millisecond)
	first.AssertCalled(t, "Close")

	// A late unregister of the replaced client leaves the new one in place.
	hub.Unregister(first)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, hub.Count())
	second.AssertNotCalled(t, "Close")
}

func TestManager_ShutdownClosesClients(t *testing.T) {
	hub := chathub.NewManager(chathub.ConsoleDeps{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newMockClient("A1")
	client.On("Run").Return()
	client.On("Close").Return()
	hub.Register(client)

	cancel()
	<-stopped

	client.AssertCalled(t, "Close")
	assert.Zero(t, hub.Count())

	// Registering after shutdown closes the client instead of blocking.
	late := newMockClient("A2")
	late.On("Close").Return()
	hub.Register(late)
	late.AssertCalled(t, "Close")
}

func TestManager_ConsoleForDisconnectedAttendant(t *testing.T) {
	hub := chathub.NewManager(chathub.ConsoleDeps{})

	console := hub.Console("A1")

	assert.Equal(t, "A1", console.AttendantID())
	assert.Empty(t, console.Channel())
}
