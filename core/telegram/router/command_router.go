package router

import (
	"log/slog"

	"github.com/m3rciful/schedulebot/core/logger"
	tg "github.com/m3rciful/schedulebot/core/telegram"
	"github.com/m3rciful/schedulebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the admin gate applied to AdminOnly commands.
type CommandRouteOptions struct {
	IsAdmin       func(userID int64) bool
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered slash command. Text aliases are served
// by TextRoutes through the registry lookup.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnly(middleware.AdminOptions{IsAdmin: opts.IsAdmin, OnReject: opts.OnAdminReject})

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, def := range cmds {
		h := def.Handler
		if def.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: summarized(handlerName("", name), h)})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "routes"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func summarized(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return summarize(c, name, func() error { return h(c) })
	}
}
