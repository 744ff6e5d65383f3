package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/schedulebot/core/telegram/netutil"
)

// BuildHTTPClient returns the client used for Bot API calls. The timeout leaves
// room for the long-poll window on top of the retry budget.
func BuildHTTPClient(longPollTimeout time.Duration) *http.Client {
	return netutil.NewClient(netutil.ClientOptions{
		Timeout: longPollTimeout + 20*time.Second,
		Retries: 3,
		Backoff: 2 * time.Second,
	})
}
