package discord

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Catsarenotevil/AntonSlayer/leetify"
	"github.com/Catsarenotevil/AntonSlayer/pipeline"
	"github.com/Catsarenotevil/AntonSlayer/roast"
)

// messageSender is the slice of *discordgo.Session the announcer needs.
type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelAnnouncer posts pipeline and API announcements to the target channel. It
// implements pipeline.Announcer and leetify.Announcer.
type ChannelAnnouncer struct {
	sender    messageSender
	channelID string
	assets    Assets
	sel       *roast.Selector
}

// NewChannelAnnouncer builds an announcer posting to channelID.
func NewChannelAnnouncer(sender messageSender, channelID string, assets Assets, sel *roast.Selector) *ChannelAnnouncer {
	return &ChannelAnnouncer{sender: sender, channelID: channelID, assets: assets, sel: sel}
}

// Announce implements pipeline.Announcer.
func (c *ChannelAnnouncer) Announce(_ context.Context, a pipeline.Announcement) error {
	msg := buildGSIMessage(a, c.assets, time.Now())
	send := &discordgo.MessageSend{Content: msg.content, Embed: msg.embed}
	if msg.embed != nil && msg.image != "" {
		if f, err := os.Open(msg.image); err == nil {
			defer f.Close()
			name := filepath.Base(msg.image)
			msg.embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + name}
			send.Files = append(send.Files, &discordgo.File{Name: name, Reader: f})
		}
	}
	if _, err := c.sender.ChannelMessageSendComplex(c.channelID, send); err != nil {
		return fmt.Errorf("send post-match message: %w", err)
	}
	return nil
}

// AnnounceAPIMatch implements leetify.Announcer.
func (c *ChannelAnnouncer) AnnounceAPIMatch(_ context.Context, m leetify.Match, stats leetify.PlayerStats, profile *leetify.Profile) error {
	embed := buildAPIEmbed(m, stats, profile, c.sel)
	send := &discordgo.MessageSend{Embed: embed}

	outcome, _, _, ok := m.Outcome(stats.InitialTeamNumber)
	if ok {
		if img, exists := c.assets.ResultImage(outcome); exists {
			if f, err := os.Open(img); err == nil {
				defer f.Close()
				embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://result_image.png"}
				send.Files = append(send.Files, &discordgo.File{Name: "result_image.png", Reader: f})
			}
		}
	}
	if img, exists := c.assets.MapImage(m.MapName); exists {
		if f, err := os.Open(img); err == nil {
			defer f.Close()
			if embed.Footer != nil {
				embed.Footer.IconURL = "attachment://map_image.png"
			}
			send.Files = append(send.Files, &discordgo.File{Name: "map_image.png", Reader: f})
		}
	}

	if _, err := c.sender.ChannelMessageSendComplex(c.channelID, send); err != nil {
		return fmt.Errorf("send api match analysis: %w", err)
	}
	return nil
}
