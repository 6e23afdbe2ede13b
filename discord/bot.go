// Package discord hosts the bot: slash commands, the channel announcer, and the embed
// rendering for post-match posts.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/Catsarenotevil/AntonSlayer/auditlog"
	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/pipeline"
)

// Options carries the bot's identity and gating configuration.
type Options struct {
	ChannelID string
	OwnerID   string
	GuildID   string
	DevMode   bool
	Steam64   string
}

// Bot wires the Discord session to the pipeline and the match store.
type Bot struct {
	session *discordgo.Session
	opts    Options
	proc    *pipeline.Processor
	store   *db.Store
	audit   *auditlog.Log
}

// New creates the bot and registers its gateway handlers. The processor is attached
// separately with SetProcessor because the pipeline's announcer posts through this
// bot's session. Call Start to connect.
func New(token string, opts Options, store *db.Store, audit *auditlog.Log) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	// Slash commands only; no privileged intents needed.
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{session: session, opts: opts, store: store, audit: audit}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// SetProcessor attaches the match pipeline. Must be called before Start.
func (b *Bot) SetProcessor(proc *pipeline.Processor) { b.proc = proc }

// Session exposes the underlying session for the announcer.
func (b *Bot) Session() *discordgo.Session { return b.session }

// Start opens the gateway connection and closes it when ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	go func() {
		<-ctx.Done()
		if err := b.session.Close(); err != nil {
			slog.Error("discord session close", slog.Any("err", err))
		}
	}()
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord connected", slog.String("user", r.User.Username))
	b.syncCommands(s)
}

// syncCommands registers the slash commands, to the configured guild when set (instant
// during development) with a global fallback.
func (b *Bot) syncCommands(s *discordgo.Session) {
	appID := s.State.User.ID
	if b.opts.GuildID != "" {
		_, err := s.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, commandDefs)
		if err == nil {
			slog.Info("slash commands synced to guild", slog.String("guild", b.opts.GuildID))
			return
		}
		slog.Warn("guild command sync failed, falling back to global", slog.Any("err", err))
	}
	if _, err := s.ApplicationCommandBulkOverwrite(appID, "", commandDefs); err != nil {
		slog.Error("global command sync failed", slog.Any("err", err))
		return
	}
	slog.Info("slash commands synced globally")
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		handler, ok := map[string]func(*discordgo.Session, *discordgo.InteractionCreate){
			"status":       b.handleStatus,
			"whoami":       b.handleWhoami,
			"setkills":     b.handleSetKills,
			"fakegame":     b.handleFakeGame,
			"fakekills":    b.handleFakeKills,
			"history":      b.handleHistory,
			"stats":        b.handleStats,
			"clearhistory": b.handleClearHistory,
			"help":         b.handleHelp,
		}[data.Name]
		if !ok {
			slog.Warn("unknown command", slog.String("name", data.Name))
			return
		}
		handler(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		if i.ApplicationCommandData().Name == "stats" {
			b.handleStatsAutocomplete(s, i)
		}
	}
}

// interactionUserID works for both guild (Member) and DM (User) interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// ownerAllowed gates owner-only commands. DEV_MODE opens them to everyone for testing.
func ownerAllowed(devMode bool, ownerID, userID string) bool {
	if devMode {
		return true
	}
	return ownerID != "" && userID == ownerID
}

func (b *Bot) isOwner(i *discordgo.InteractionCreate) bool {
	return ownerAllowed(b.opts.DevMode, b.opts.OwnerID, interactionUserID(i))
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		slog.Error("interaction respond", slog.Any("err", err))
	}
}
