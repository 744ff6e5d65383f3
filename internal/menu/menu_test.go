package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupsKeyboard(t *testing.T) {
	m := Markup(Groups, []Choice{{Label: "A-1"}, {Label: "A-2"}, {Label: "B-1"}})
	require.NotNil(t, m)
	assert.True(t, m.OneTimeKeyboard)
	require.Len(t, m.ReplyKeyboard, 3)
	assert.Equal(t, "A-1", m.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "A-2", m.ReplyKeyboard[0][1].Text)
	assert.Equal(t, "B-1", m.ReplyKeyboard[1][0].Text)
	assert.Equal(t, Cancel, m.ReplyKeyboard[2][0].Text)
}

func TestTeachersKeyboard(t *testing.T) {
	m := Markup(Teachers, []Choice{{ID: "t1", Label: "Иванов"}})
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, CbTeacher, m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "t1", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, CbRegCancel, m.InlineKeyboard[1][0].Unique)
}

func TestMainMenus(t *testing.T) {
	assert.Len(t, Markup(StudentMain, nil).ReplyKeyboard, 3)
	assert.Len(t, Markup(TeacherMain, nil).ReplyKeyboard, 4)
	assert.True(t, Markup(Remove, nil).RemoveKeyboard)
	assert.Nil(t, Markup(None, nil))
}
