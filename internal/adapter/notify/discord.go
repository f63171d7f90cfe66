package notify

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// DiscordSurface posts notifications to a Discord channel.
type DiscordSurface struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordSurface creates a Discord surface. The session uses plain REST
// calls; no gateway connection is opened.
func NewDiscordSurface(token, channelID string) (*DiscordSurface, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordSurface{session: session, channelID: channelID}, nil
}

func (d *DiscordSurface) Name() string { return "discord" }

func (d *DiscordSurface) Send(_ context.Context, text string) error {
	_, err := d.session.ChannelMessageSend(d.channelID, text)
	return err
}
