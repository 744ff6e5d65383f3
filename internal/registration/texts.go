package registration

import (
	"fmt"
	"html"

	"github.com/m3rciful/schedulebot/internal/session"
)

const (
	textNewUser = "Привет, %s! 👋\n\nДобро пожаловать в бота расписания университета!\n\nКто вы?"
	textWelcome = "Привет, %s! 👋\n\nВы вошли как: %s\n\nИспользуй меню для просмотра расписания."
	textSwitch  = "Хотите сменить роль?"

	textGroupsFailed   = "Извините, не удалось загрузить список групп.\nПопробуйте позже."
	textPickedStudent  = "Вы выбрали: Студент"
	textPickGroup      = "Выберите вашу группу:"
	textBadGroup       = "Пожалуйста, выберите группу из списка."
	textPickSubgroup   = "Отлично! Выберите подгруппу:"
	textBadSubgroup    = "Пожалуйста, выберите подгруппу из списка."
	textAskName        = "Введите ваше имя:"
	textBadName        = "Пожалуйста, введите корректное имя (минимум 2 символа)."
	textTeachersLoad   = "⏳ Загружаю список преподавателей..."
	textTeachersFailed = "❌ Не удалось загрузить список преподавателей."
	textPickTeacher    = "Вы выбрали: Преподаватель\n\nВыберите себя из списка:"
	textMainMenu       = "Главное меню:"

	textCancelled      = "Регистрация отменена."
	textActionCanceled = "Действие отменено."
	textRoleReset      = "✅ Ваша роль сброшена.\n\nКто вы?"
	textLoggedOut      = "✅ Вы вышли из сессии.\n\nИспользуйте /start для новой авторизации."
	textNoSession      = "Сессия не найдена."
	textKeepSession    = "👌 Продолжаем с текущей сессией."
)

func roleTitle(r session.Role) string {
	if r == session.RoleTeacher {
		return "👨‍🏫 Преподаватель"
	}
	return "👨‍🎓 Студент"
}

// SubgroupTitle renders a subgroup value for users.
func SubgroupTitle(sg string) string {
	if sg == session.SubgroupAll || sg == "" {
		return "Вся группа"
	}
	return sg
}

func welcomeText(rec session.Record) string {
	return fmt.Sprintf(textWelcome, html.EscapeString(rec.Name), roleTitle(rec.Role))
}

func newUserText(firstName string) string {
	return fmt.Sprintf(textNewUser, html.EscapeString(firstName))
}

func studentDoneText(rec session.Record) string {
	return "✅ Регистрация завершена!\n\n" +
		"<b>Ваши данные:</b>\n" +
		"Роль: Студент\n" +
		"Имя: " + html.EscapeString(rec.Name) + "\n" +
		"Группа: " + html.EscapeString(rec.Group) + "\n" +
		"Подгруппа: " + SubgroupTitle(rec.Subgroup) + "\n\n" +
		"Теперь вы можете просматривать расписание!\n" +
		"📢 Вы будете получать уведомления об изменениях в расписании."
}

func teacherDoneText(rec session.Record) string {
	return "✅ Регистрация завершена!\n\n" +
		"<b>Ваши данные:</b>\n" +
		"Роль: Преподаватель\n" +
		"Имя: " + html.EscapeString(rec.Name) + "\n\n" +
		"Используйте меню для просмотра расписания!\n" +
		"📢 Вы будете получать уведомления об изменениях в расписании."
}
