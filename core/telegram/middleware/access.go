package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions configures the admin gate.
type AdminOptions struct {
	IsAdmin  func(userID int64) bool
	OnReject tele.HandlerFunc
}

// AdminOnly lets the update through only when IsAdmin accepts the sender.
// A nil IsAdmin rejects everyone.
func AdminOnly(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil || opts.IsAdmin == nil || !opts.IsAdmin(u.ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
