package keyboard

import (
	"reflect"
	"testing"
)

func TestGrid(t *testing.T) {
	got := Grid([]string{"A-1", "A-2", "B-1"}, 2, []string{"❌ Отмена"})
	want := [][]string{{"A-1", "A-2"}, {"B-1"}, {"❌ Отмена"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Grid = %v, want %v", got, want)
	}
}

func TestReplyButtonsShape(t *testing.T) {
	m := OneTime(ReplyButtons([]string{"1", "2"}, []string{"Вся группа"}))
	if !m.ResizeKeyboard || !m.OneTimeKeyboard {
		t.Fatal("expected resized one-time keyboard")
	}
	if len(m.ReplyKeyboard) != 2 || len(m.ReplyKeyboard[0]) != 2 || m.ReplyKeyboard[1][0].Text != "Вся группа" {
		t.Fatalf("unexpected layout: %+v", m.ReplyKeyboard)
	}
}

func TestInlineColumn(t *testing.T) {
	m := InlineColumn(InlineBtn{Text: "Иванов", Unique: "teacher", Data: "t1"}, InlineBtn{Text: "❌ Отмена", Unique: "reg_cancel"})
	if len(m.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d", len(m.InlineKeyboard))
	}
	if b := m.InlineKeyboard[0][0]; b.Unique != "teacher" || b.Data != "t1" {
		t.Fatalf("button = %+v", b)
	}
}
