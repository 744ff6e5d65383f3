package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/m3rciful/schedulebot/internal/menu"
	"github.com/m3rciful/schedulebot/internal/session"
)

// Conversation states.
const (
	StateChooseRole      = "choose_role"
	StateStudentGroup    = "student_group"
	StateStudentSubgroup = "student_subgroup"
	StateStudentName     = "student_name"
	StateTeacherSelect   = "teacher_select"
	StateComplete        = "complete"
	StateCancelled       = "cancelled"
)

// Events of the transition table.
const (
	evPickStudent   = "pick_student"
	evPickTeacher   = "pick_teacher"
	evPickGroup     = "pick_group"
	evPickSubgroup  = "pick_subgroup"
	evEnterName     = "enter_name"
	evSelectTeacher = "select_teacher"
	evCancel        = "cancel"
)

var transitions = fsm.Events{
	{Name: evPickStudent, Src: []string{StateChooseRole}, Dst: StateStudentGroup},
	{Name: evPickTeacher, Src: []string{StateChooseRole}, Dst: StateTeacherSelect},
	{Name: evPickGroup, Src: []string{StateStudentGroup}, Dst: StateStudentSubgroup},
	{Name: evPickSubgroup, Src: []string{StateStudentSubgroup}, Dst: StateStudentName},
	{Name: evEnterName, Src: []string{StateStudentName}, Dst: StateComplete},
	{Name: evSelectTeacher, Src: []string{StateTeacherSelect}, Dst: StateComplete},
	{Name: evCancel, Src: []string{
		StateChooseRole, StateStudentGroup, StateStudentSubgroup, StateStudentName, StateTeacherSelect,
	}, Dst: StateCancelled},
}

// Conversation is the registration progress of one user. Groups and Options
// hold the menus rendered earlier so typed answers can be validated against them.
type Conversation struct {
	State     string
	Role      session.Role
	Groups    []string
	Group     string
	Subgroup  string
	Options   []menu.Choice
	ChatID    int64
	StartedAt time.Time
}

// fire applies event to conv and returns the new state.
func (c *Conversation) fire(ctx context.Context, event string) error {
	f := fsm.NewFSM(c.State, transitions, fsm.Callbacks{})
	if err := f.Event(ctx, event); err != nil {
		return fmt.Errorf("registration: %s from %s: %w", event, c.State, err)
	}
	c.State = f.Current()
	return nil
}

func (c Conversation) hasGroup(g string) bool {
	for _, v := range c.Groups {
		if v == g {
			return true
		}
	}
	return false
}

func (c Conversation) option(id string) (menu.Choice, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return menu.Choice{}, false
}

// acceptsText reports whether the state takes typed answers. The other states
// only react to button presses.
func acceptsText(state string) bool {
	switch state {
	case StateStudentGroup, StateStudentSubgroup, StateStudentName:
		return true
	}
	return false
}

// subgroupOf maps a subgroup answer to its stored value.
func subgroupOf(text string) (string, bool) {
	switch text {
	case session.SubgroupFirst, session.SubgroupSecond:
		return text, true
	case menu.WholeGroup:
		return session.SubgroupAll, true
	}
	return "", false
}
