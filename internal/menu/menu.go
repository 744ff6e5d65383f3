// Package menu holds the button labels, callback keys and keyboards of the bot.
package menu

import (
	"github.com/m3rciful/schedulebot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Callback unique keys.
const (
	CbRole        = "role"
	CbTeacher     = "teacher"
	CbRegCancel   = "reg_cancel"
	CbKeepSession = "keep_session"
	CbChangeRole  = "change_role"
	CbLogout      = "logout"
)

// Role button payloads.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// Reply keyboard labels.
const (
	Cancel     = "❌ Отмена"
	WholeGroup = "Вся группа"

	Today    = "📅 Сегодня"
	Tomorrow = "📅 Завтра"
	Week     = "📆 Неделя"
	Profile  = "👤 Профиль"
	Help     = "ℹ️ Помощь"

	MyToday    = "📅 Моё расписание сегодня"
	MyTomorrow = "📅 Моё расписание завтра"
	MyWeek     = "📆 Моё расписание на неделю"
)

// Kind selects the keyboard attached to a message.
type Kind int

const (
	None Kind = iota
	Remove
	Roles
	Groups
	Subgroups
	Teachers
	StudentMain
	TeacherMain
	SessionChoice
	ProfileActions
)

func (k Kind) String() string {
	switch k {
	case Remove:
		return "remove"
	case Roles:
		return "roles"
	case Groups:
		return "groups"
	case Subgroups:
		return "subgroups"
	case Teachers:
		return "teachers"
	case StudentMain:
		return "student_main"
	case TeacherMain:
		return "teacher_main"
	case SessionChoice:
		return "session_choice"
	case ProfileActions:
		return "profile_actions"
	}
	return "none"
}

// Choice is one dynamic option: a group name or a teacher.
type Choice struct {
	ID    string
	Label string
}

// Markup builds the keyboard of kind. choices feed Groups and Teachers.
func Markup(kind Kind, choices []Choice) *tele.ReplyMarkup {
	switch kind {
	case Remove:
		return keyboard.RemoveKeyboard()
	case Roles:
		return keyboard.InlineRows([]keyboard.InlineBtn{
			{Text: "👨‍🎓 Студент", Unique: CbRole, Data: RoleStudent},
			{Text: "👨‍🏫 Преподаватель", Unique: CbRole, Data: RoleTeacher},
		})
	case Groups:
		labels := make([]string, 0, len(choices))
		for _, ch := range choices {
			labels = append(labels, ch.Label)
		}
		return keyboard.OneTime(keyboard.ReplyButtons(keyboard.Grid(labels, 2, []string{Cancel})...))
	case Subgroups:
		return keyboard.OneTime(keyboard.ReplyButtons(
			[]string{"1", "2"},
			[]string{WholeGroup},
			[]string{Cancel},
		))
	case Teachers:
		btns := make([]keyboard.InlineBtn, 0, len(choices)+1)
		for _, ch := range choices {
			btns = append(btns, keyboard.InlineBtn{Text: ch.Label, Unique: CbTeacher, Data: ch.ID})
		}
		btns = append(btns, keyboard.InlineBtn{Text: Cancel, Unique: CbRegCancel})
		return keyboard.InlineColumn(btns...)
	case StudentMain:
		return keyboard.ReplyButtons(
			[]string{Today, Tomorrow},
			[]string{Week, Profile},
			[]string{Help},
		)
	case TeacherMain:
		return keyboard.ReplyButtons(
			[]string{MyToday},
			[]string{MyTomorrow},
			[]string{MyWeek},
			[]string{Profile, Help},
		)
	case SessionChoice:
		return keyboard.InlineColumn(
			keyboard.InlineBtn{Text: "▶️ Продолжить", Unique: CbKeepSession},
			keyboard.InlineBtn{Text: "🔄 Сменить роль", Unique: CbChangeRole},
		)
	case ProfileActions:
		return keyboard.InlineColumn(
			keyboard.InlineBtn{Text: "🔄 Сменить роль", Unique: CbChangeRole},
			keyboard.InlineBtn{Text: "🚪 Выйти из сессии", Unique: CbLogout},
		)
	}
	return nil
}
