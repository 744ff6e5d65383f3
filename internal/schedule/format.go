package schedule

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/schedulebot/internal/backend"
)

// localZone is the fixed offset class times are shown in.
var localZone = time.FixedZone("UTC+5", 5*60*60)

var typeEmoji = map[string]string{
	"lecture":  "📚",
	"seminar":  "💬",
	"lab":      "🔬",
	"practice": "✏️",
	"exam":     "📝",
	"test":     "📋",
}

var weekdays = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// FormatSession renders one class.
func FormatSession(s backend.Session) string {
	kind := s.Type
	if kind == "" {
		kind = "lecture"
	}
	emoji, ok := typeEmoji[kind]
	if !ok {
		emoji = "📖"
	}

	course := "N/A"
	if s.Course != nil && s.Course.Name != "" {
		course = s.Course.Name
	}
	teacher := "Преподаватель не назначен"
	if s.Teacher != nil {
		teacher = s.Teacher.Name
		if teacher == "" {
			teacher = "N/A"
		}
	}
	var building string
	number := "N/A"
	if s.Room != nil {
		building = s.Room.Building
		if s.Room.Number != "" {
			number = string(s.Room.Number)
		}
	}
	pair := "Занятие"
	if s.PairNumber > 0 {
		pair = strconv.Itoa(s.PairNumber) + " пара"
	}

	var b strings.Builder
	b.WriteString(emoji + " <b>" + course + "</b>\n")
	b.WriteString("🔢 " + pair + " (" + clock(s.StartAt) + " - " + clock(s.EndAt) + ")\n")
	b.WriteString("👤 " + teacher + "\n")
	b.WriteString("🏛 " + strings.TrimSpace(building+" "+number) + "\n")
	return b.String()
}

func clock(t time.Time) string {
	return t.In(localZone).Format("15:04")
}

// dayLabel renders an ISO date key as "Пн, 02.09". Unparseable keys are kept as is.
func dayLabel(key string) string {
	d, err := time.Parse("2006-01-02", key)
	if err != nil {
		if d, err = time.Parse(time.RFC3339, key); err != nil {
			return key
		}
	}
	return weekdays[(int(d.Weekday())+6)%7] + ", " + d.Format("02.01")
}

func sortedDays(byDate map[string][]backend.Session) []string {
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func groupLine(group, subgroup string) string {
	line := "Группа: " + group
	if subgroup != "" && subgroup != "all" {
		line += " (подгруппа " + subgroup + ")"
	}
	return line + "\n\n"
}

func groupsLine(s backend.Session) string {
	return "Группы: " + strings.Join(s.Groups, ", ") + "\n\n"
}

// formatStudent renders the schedule of a group.
func formatStudent(p Period, group, subgroup string, sch backend.Schedule) string {
	var b strings.Builder
	if p == Week {
		b.WriteString("📆 <b>Расписание на неделю</b>\n")
		b.WriteString(groupLine(group, subgroup))
		for _, day := range sortedDays(sch.ByDate) {
			b.WriteString("<b>" + dayLabel(day) + ":</b>\n")
			for _, s := range sch.ByDate[day] {
				b.WriteString(FormatSession(s))
			}
			b.WriteString("\n")
		}
		return b.String()
	}
	b.WriteString("📅 <b>Расписание на " + p.title() + "</b>\n")
	b.WriteString(groupLine(group, subgroup))
	for i, s := range sch.Sessions {
		b.WriteString("<b>" + strconv.Itoa(i+1) + ".</b> ")
		b.WriteString(FormatSession(s))
	}
	return b.String()
}

// formatTeacher renders the schedule of a teacher.
func formatTeacher(p Period, sch backend.Schedule) string {
	var b strings.Builder
	if p == Week {
		b.WriteString("📆 <b>Ваше расписание на неделю</b>\n\n")
		for _, day := range sortedDays(sch.ByDate) {
			b.WriteString("<b>" + dayLabel(day) + ":</b>\n")
			for _, s := range sch.ByDate[day] {
				b.WriteString(FormatSession(s))
				b.WriteString(groupsLine(s))
			}
		}
		return b.String()
	}
	b.WriteString("📅 <b>Ваше расписание на " + p.title() + "</b>\n\n")
	for i, s := range sch.Sessions {
		b.WriteString("<b>" + strconv.Itoa(i+1) + ".</b> ")
		b.WriteString(FormatSession(s))
		b.WriteString(groupsLine(s))
	}
	return b.String()
}
