package bot

import (
	"fmt"

	tg "github.com/m3rciful/schedulebot/core/telegram"
	"github.com/m3rciful/schedulebot/core/telegram/commands"
	"github.com/m3rciful/schedulebot/internal/menu"
	"github.com/m3rciful/schedulebot/internal/metrics"
	"github.com/m3rciful/schedulebot/internal/registration"
	"github.com/m3rciful/schedulebot/internal/schedule"

	tele "gopkg.in/telebot.v4"
)

// counted bumps the command counter before h runs.
func counted(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		metrics.IncCommand(name)
		return h(c)
	}
}

// register binds every command, menu label and inline button of the bot.
func register(reg *tg.Registry, flow *registration.Flow, h *Handlers) error {
	cmds := map[string]commands.Command{
		"/start": {
			Handler:     flow.Start,
			Description: "Главное меню",
		},
		"/today": {
			Handler:     h.Schedule(schedule.Today),
			Description: "Расписание на сегодня",
			Aliases:     []string{menu.Today, menu.MyToday},
		},
		"/tomorrow": {
			Handler:     h.Schedule(schedule.Tomorrow),
			Description: "Расписание на завтра",
			Aliases:     []string{menu.Tomorrow, menu.MyTomorrow},
		},
		"/week": {
			Handler:     h.Schedule(schedule.Week),
			Description: "Расписание на неделю",
			Aliases:     []string{menu.Week, menu.MyWeek},
		},
		"/profile": {
			Handler:     h.Profile,
			Description: "Мой профиль",
			Aliases:     []string{menu.Profile},
		},
		"/help": {
			Handler:     h.Help,
			Description: "Справка",
			Aliases:     []string{menu.Help},
		},
		"/cancel": {
			Handler:     flow.CancelCommand,
			Description: "Отменить текущее действие",
		},
		"/poll": {
			Handler:     h.Poll,
			Description: "Запустить цикл рассылки",
			AdminOnly:   true,
		},
		"/deliveries": {
			Handler:     h.Deliveries,
			Description: "Журнал доставок",
			AdminOnly:   true,
		},
	}
	for name, cmd := range cmds {
		cmd.Handler = counted(name, cmd.Handler)
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}

	callbacks := map[string]tele.HandlerFunc{
		menu.CbRole:        flow.OnPress,
		menu.CbTeacher:     flow.OnPress,
		menu.CbRegCancel:   flow.OnCancel,
		menu.CbKeepSession: flow.OnKeepSession,
		menu.CbChangeRole:  flow.OnChangeRole,
		menu.CbLogout:      flow.OnLogout,
	}
	for key, handler := range callbacks {
		if err := reg.RegisterCallback(key, handler); err != nil {
			return fmt.Errorf("callback %s: %w", key, err)
		}
	}
	reg.SetTextFallback(h.Fallback)
	reg.SetCallbackNotFound(h.StaleButton)
	return nil
}
