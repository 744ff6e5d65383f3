package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/m3rciful/schedulebot/internal/notify"
	"github.com/m3rciful/schedulebot/internal/registration"
	"github.com/m3rciful/schedulebot/internal/schedule"
	"github.com/m3rciful/schedulebot/internal/session"
)

const (
	textNotRegistered = schedule.TextUnregistered
	textUseMenu       = "Используйте кнопки меню или команды."
	textFailure       = "❌ Произошла ошибка. Попробуйте позже."
	textSlowDown      = "⏳ Слишком часто. Подождите пару секунд."
	textAdminOnly     = "⛔ Команда доступна только администраторам."
	textStaleButton   = "Эта кнопка больше не активна. Используйте /start."

	textPollDisabled = "Рассылка уведомлений отключена."
	textPollBusy     = "⏳ Цикл рассылки уже выполняется."
	textPollFailed   = "❌ Не удалось получить уведомления: %s"

	textJournalOff   = "Журнал доставок отключён."
	textJournalEmpty = "Доставок за последние сутки не было."
	textNoAttempts   = "Попыток доставки для %s не найдено."

	textHelpGuest = "<b>Добро пожаловать!</b>\n\n" +
		"Для начала работы используйте /start для регистрации."

	helpCommands = "/start - Главное меню\n" +
		"/today - Расписание на сегодня\n" +
		"/tomorrow - Расписание на завтра\n" +
		"/week - Расписание на неделю\n" +
		"/profile - Мой профиль\n" +
		"/help - Справка\n\n" +
		"<b>Также можно использовать кнопки меню!</b>"
)

func helpText(role session.Role) string {
	switch role {
	case session.RoleTeacher:
		return "<b>Доступные команды для преподавателя:</b>\n\n" + helpCommands
	case session.RoleStudent:
		return "<b>Доступные команды для студента:</b>\n\n" + helpCommands
	}
	return textHelpGuest
}

func profileText(rec session.Record, userID int64) string {
	var b strings.Builder
	b.WriteString("👤 <b>Ваш профиль</b>\n\n")
	if rec.Role == session.RoleTeacher {
		b.WriteString("Роль: Преподаватель\n")
		b.WriteString("Имя: " + html.EscapeString(rec.Name) + "\n")
	} else {
		b.WriteString("Роль: Студент\n")
		b.WriteString("Имя: " + html.EscapeString(rec.Name) + "\n")
		b.WriteString("Группа: " + html.EscapeString(rec.Group) + "\n")
		b.WriteString("Подгруппа: " + registration.SubgroupTitle(rec.Subgroup) + "\n")
	}
	b.WriteString("Telegram ID: " + strconv.FormatInt(userID, 10) + "\n")
	return b.String()
}

func pollText(s notify.CycleStats) string {
	if s.Skipped {
		return "⏭ Цикл пропущен: рассылку выполняет другой экземпляр бота."
	}
	return fmt.Sprintf("📬 <b>Цикл рассылки завершён</b>\n\n"+
		"Получено: %d\nОтправлено: %d\nОшибок: %d\n"+
		"Без адресата: %d\nЗаблокировали бота: %d\nОшибок отчёта: %d",
		s.Fetched, s.Sent, s.Failed, s.Invalid, s.Permanent, s.ReportErrors)
}

func summaryText(rows []notify.StatusCount) string {
	if len(rows) == 0 {
		return textJournalEmpty
	}
	var b strings.Builder
	b.WriteString("📊 <b>Доставки за сутки</b>\n\n")
	for _, r := range rows {
		b.WriteString(html.EscapeString(r.Status))
		if r.Class != "" {
			b.WriteString(" (" + html.EscapeString(r.Class) + ")")
		}
		b.WriteString(": " + strconv.Itoa(r.Total) + "\n")
	}
	return b.String()
}

func attemptsText(id string, rows []notify.Attempt) string {
	if len(rows) == 0 {
		return fmt.Sprintf(textNoAttempts, html.EscapeString(id))
	}
	var b strings.Builder
	b.WriteString("🧾 <b>" + html.EscapeString(id) + "</b>\n\n")
	for _, a := range rows {
		b.WriteString(a.AttemptedAt.UTC().Format("02.01 15:04:05"))
		b.WriteString(" " + html.EscapeString(a.Status))
		if a.Detail != "" {
			b.WriteString(": " + html.EscapeString(a.Detail))
		}
		if !a.Reported {
			b.WriteString(" ⚠️ не отправлен в бэкенд")
		}
		b.WriteString("\n")
	}
	return b.String()
}
