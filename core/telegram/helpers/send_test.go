package helpers

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/schedulebot/core/telegram/format"
	"github.com/m3rciful/schedulebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// chatContext records sends; the first chunk blocks until gate closes.
type chatContext struct {
	tele.Context
	store map[string]interface{}
	first string
	gate  chan struct{}

	mu   sync.Mutex
	sent []string
}

func (c *chatContext) Sender() *tele.User          { return &tele.User{ID: 5} }
func (c *chatContext) Chat() *tele.Chat            { return &tele.Chat{ID: 5} }
func (c *chatContext) Update() tele.Update         { return tele.Update{ID: 1} }
func (c *chatContext) Get(k string) interface{}    { return c.store[k] }
func (c *chatContext) Set(k string, v interface{}) { c.store[k] = v }

func (c *chatContext) Send(what interface{}, _ ...interface{}) error {
	text := what.(string)
	if text == c.first {
		<-c.gate
	}
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	return nil
}

func TestSendChunksKeepsOrderWhenQueueIsFull(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1, QueueSize: 1})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	text := strings.Repeat("a", format.MessageLimit) +
		strings.Repeat("b", format.MessageLimit) +
		strings.Repeat("c", format.MessageLimit) + "d"
	parts := format.Split(text, format.MessageLimit)
	if len(parts) != 4 {
		t.Fatalf("parts = %d", len(parts))
	}
	c := &chatContext{store: map[string]interface{}{}, first: parts[0], gate: make(chan struct{})}

	done := make(chan error, 1)
	go func() { done <- SendChunks(c, text) }()

	time.Sleep(50 * time.Millisecond)
	close(c.gate)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("send chunks: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send chunks did not return")
	}
	d.Close()

	if len(c.sent) != len(parts) {
		t.Fatalf("sent %d messages, want %d", len(c.sent), len(parts))
	}
	for i := range parts {
		if c.sent[i] != parts[i] {
			t.Fatalf("message %d out of order", i)
		}
	}
}

func TestSendInlineWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	c := &chatContext{store: map[string]interface{}{}, gate: make(chan struct{})}
	if err := SendText(c, "hi", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(c.sent) != 1 || c.sent[0] != "hi" {
		t.Fatalf("sent = %v", c.sent)
	}
}
