package discord

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/Catsarenotevil/AntonSlayer/leetify"
	"github.com/Catsarenotevil/AntonSlayer/pipeline"
	"github.com/Catsarenotevil/AntonSlayer/roast"
)

type fakeSender struct {
	sent []*discordgo.MessageSend
	err  error
}

func (f *fakeSender) ChannelMessageSendComplex(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, data)
	return &discordgo.Message{}, nil
}

func TestAnnounceAttachesLossImage(t *testing.T) {
	sender := &fakeSender{}
	ann := NewChannelAnnouncer(sender, "chan-1", testAssets(t), nil)

	err := ann.Announce(context.Background(), pipeline.Announcement{
		Kind: pipeline.KindLoss, Kills: 2, Map: "mirage", Roast: "ouch",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Embed == nil || len(msg.Files) != 1 {
		t.Fatalf("expected embed with one attachment, got %+v", msg)
	}
	if msg.Files[0].Name != "loss.png" {
		t.Fatalf("attachment = %q", msg.Files[0].Name)
	}
	if msg.Embed.Image == nil || !strings.HasPrefix(msg.Embed.Image.URL, "attachment://") {
		t.Fatalf("embed image = %+v", msg.Embed.Image)
	}
}

func TestAnnouncePlainSkipsAttachment(t *testing.T) {
	sender := &fakeSender{}
	ann := NewChannelAnnouncer(sender, "chan-1", testAssets(t), nil)

	err := ann.Announce(context.Background(), pipeline.Announcement{
		Kind: pipeline.KindPlain, Kills: 12, Map: "nuke",
	})
	if err != nil {
		t.Fatal(err)
	}
	msg := sender.sent[0]
	if msg.Embed != nil || len(msg.Files) != 0 || msg.Content == "" {
		t.Fatalf("expected content-only message, got %+v", msg)
	}
}

func TestAnnounceAPIMatchAttachments(t *testing.T) {
	sel, err := roast.Default()
	if err != nil {
		t.Fatal(err)
	}
	sender := &fakeSender{}
	ann := NewChannelAnnouncer(sender, "chan-1", testAssets(t), sel)

	m := leetify.Match{
		MapName:    "de_mirage",
		TeamScores: []leetify.TeamScore{{TeamNumber: 2, Score: 13}, {TeamNumber: 3, Score: 7}},
	}
	stats := leetify.PlayerStats{InitialTeamNumber: 2, LeetifyRating: 1.0}
	if err := ann.AnnounceAPIMatch(context.Background(), m, stats, &leetify.Profile{Winrate: 0.5}); err != nil {
		t.Fatal(err)
	}

	msg := sender.sent[0]
	names := map[string]bool{}
	for _, f := range msg.Files {
		names[f.Name] = true
	}
	// Winning side gets the win image; de_mirage has no map asset so misc.png stands in.
	if !names["result_image.png"] || !names["map_image.png"] {
		t.Fatalf("attachments = %v", names)
	}
	if msg.Embed.Footer == nil || msg.Embed.Footer.IconURL != "attachment://map_image.png" {
		t.Fatalf("footer = %+v", msg.Embed.Footer)
	}
}
