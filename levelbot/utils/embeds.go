package utils

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

const (
	SuccessColor = 0x57F287
	ErrorColor   = 0xED4245
	WarningColor = 0xFAA81A
	InfoColor    = 0x5865F2
	NeutralColor = 0x2B2D31
)

// ResponseHandler provides standardized response methods for commands.
type ResponseHandler struct{}

var EH = &ResponseHandler{}

func (h *ResponseHandler) CreateErrorEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       ErrorColor,
		}},
	})
}

func (h *ResponseHandler) CreateEphemeralError(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func (h *ResponseHandler) CreateSuccessEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       SuccessColor,
		}},
	})
}

func (h *ResponseHandler) CreateInfoEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       InfoColor,
		}},
	})
}
