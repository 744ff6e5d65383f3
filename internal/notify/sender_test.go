package notify

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/schedulebot/core/telegram"
)

const sentMessage = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":100,"type":"private"},"text":"hello"}}`

// botAPI counts sendMessage calls. When resetFirst is set the first call is read
// in full and then the connection is reset without a response.
func botAPI(t *testing.T, resetFirst bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			http.NotFound(w, r)
			return
		}
		n := calls.Add(1)
		_, _ = io.ReadAll(r.Body)
		if resetFirst && n == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetLinger(0)
			}
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sentMessage)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestSender(t *testing.T, url string) *BotSender {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{
		URL:     url,
		Token:   "123:abc",
		Client:  tg.BuildHTTPClient(0),
		Offline: true,
	})
	require.NoError(t, err)
	return NewBotSender(bot)
}

func TestDeliverSendsOnce(t *testing.T) {
	srv, calls := botAPI(t, false)
	s := newTestSender(t, srv.URL)

	require.NoError(t, s.Deliver(context.Background(), "100", "hello"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestDeliverNeverReplaysAfterReset(t *testing.T) {
	srv, calls := botAPI(t, true)
	s := newTestSender(t, srv.URL)

	err := s.Deliver(context.Background(), "100", "hello")
	assert.Error(t, err, "a reset after the request was written is a failed attempt")
	assert.EqualValues(t, 1, calls.Load(), "one notification must produce one sendMessage call")
}
