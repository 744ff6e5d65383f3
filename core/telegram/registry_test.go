package telegram

import (
	"testing"

	"github.com/m3rciful/schedulebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryAliasesAndLookup(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCommand("/today", commands.Command{Handler: noop, Description: "today", Aliases: []string{"📅 Сегодня"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCommand("/poll", commands.Command{Handler: noop, Description: "poll", AdminOnly: true}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, in := range []string{"/today", "📅 Сегодня", "/today@schedule_bot", "/today now"} {
		name, _, ok := reg.LookupCommand(in)
		if !ok || name != "/today" {
			t.Fatalf("lookup %q = %q, %v", in, name, ok)
		}
	}
	if _, _, ok := reg.LookupCommand("Сегодня"); ok {
		t.Fatal("partial alias must not match")
	}

	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "today" {
		t.Fatalf("visible = %+v", visible)
	}
	if len(reg.ListCommands(false)) != 2 {
		t.Fatal("expected admin command in full list")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	cmd := commands.Command{Handler: noop, Description: "x", Aliases: []string{"X"}}
	if err := reg.RegisterCommand("/x", cmd); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCommand("/x", cmd); err == nil {
		t.Fatal("expected duplicate command error")
	}
	if err := reg.RegisterCommand("/y", cmd); err == nil {
		t.Fatal("expected duplicate alias error")
	}
	if err := reg.RegisterCommand("noslash", commands.Command{Handler: noop, Description: "x"}); err == nil {
		t.Fatal("expected invalid name error")
	}
	if err := reg.RegisterCallback("role", noop); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if err := reg.RegisterCallback("role", noop); err == nil {
		t.Fatal("expected duplicate callback error")
	}
}
