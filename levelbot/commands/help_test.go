package commands

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
)

func TestFindHelpTopic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{name: "Plain", input: "bid", want: "bid", found: true},
		{name: "LeadingSlash", input: "/bid", want: "bid", found: true},
		{name: "MixedCase", input: "CustomRole", want: "customrole", found: true},
		{name: "Whitespace", input: "  rank ", want: "rank", found: true},
		{name: "Unknown", input: "frobnicate", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, found := findHelpTopic(tt.input)
			if found != tt.found {
				t.Fatalf("findHelpTopic(%q) found = %v, want %v", tt.input, found, tt.found)
			}
			if found && topic.name != tt.want {
				t.Errorf("findHelpTopic(%q).name = %q, want %q", tt.input, topic.name, tt.want)
			}
		})
	}
}

func TestHelpTopicsMatchRegisteredCommands(t *testing.T) {
	registered := map[string]bool{}
	for _, c := range Commands {
		if sc, ok := c.(discord.SlashCommandCreate); ok {
			registered[sc.Name] = true
		}
	}

	categories := map[string]bool{}
	for _, c := range helpCategories {
		categories[c.name] = true
	}

	for _, topic := range helpTopics {
		if !registered[topic.name] {
			t.Errorf("help topic %q has no registered command", topic.name)
		}
		if !categories[topic.category] {
			t.Errorf("help topic %q uses unlisted category %q", topic.name, topic.category)
		}
		if topic.summary == "" || topic.usage == "" {
			t.Errorf("help topic %q is missing its usage or summary", topic.name)
		}
	}
}
