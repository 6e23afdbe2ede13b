package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Catsarenotevil/AntonSlayer/leetify"
	"github.com/Catsarenotevil/AntonSlayer/pipeline"
	"github.com/Catsarenotevil/AntonSlayer/roast"
)

// Embed colors.
const (
	colorDarkRed = 0x992d22
	colorGold    = 0xf1c40f
	colorGreen   = 0x57f287
	colorYellow  = 0xfee75c
	colorRed     = 0xed4245
)

const dominanceFlourish = "Nu spelar knullbengan"

// gsiMessage is the rendered form of a pipeline announcement: either an embed or a
// plain content string, never both empty.
type gsiMessage struct {
	content string
	embed   *discordgo.MessageEmbed
	image   string // local file to attach, empty when none
}

// buildGSIMessage renders the three post-match branches.
func buildGSIMessage(a pipeline.Announcement, assets Assets, now time.Time) gsiMessage {
	mapStr := a.Map
	if mapStr == "" {
		mapStr = "unknown"
	}

	switch a.Kind {
	case pipeline.KindLoss:
		desc := a.Roast
		if a.Kills > 20 {
			desc += "\n\n" + dominanceFlourish
		}
		embed := &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Post-match: Anton finished with %d kills on %s", a.Kills, mapStr),
			Description: desc,
			Color:       colorDarkRed,
		}
		if a.StatsLine != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "Stats", Value: a.StatsLine,
			})
		}
		msg := gsiMessage{embed: embed}
		if img, ok := assets.ResultImage(leetify.OutcomeLoss); ok {
			msg.image = img
		}
		return msg

	case pipeline.KindDominance:
		desc := fmt.Sprintf("**Post-match:** Anton finished with **%d kills** on **%s** at `%s UTC`.\n\n%s",
			a.Kills, mapStr, now.UTC().Format(time.RFC3339), dominanceFlourish)
		if a.StatsLine != "" {
			desc += "\nStats: " + a.StatsLine
		}
		embed := &discordgo.MessageEmbed{
			Title:       "🔥 Anton dominerar!",
			Description: desc,
			Color:       colorGold,
		}
		msg := gsiMessage{embed: embed}
		if img, ok := assets.ResultImage(leetify.OutcomeWin); ok {
			msg.image = img
		}
		return msg

	default:
		content := fmt.Sprintf("**Post-match:** Anton finished with **%d kills** on **%s** at `%s UTC`.",
			a.Kills, mapStr, now.UTC().Format(time.RFC3339))
		if a.Roast != "" {
			content += "\n" + a.Roast
		}
		if a.StatsLine != "" {
			content += "\nStats: " + a.StatsLine
		}
		return gsiMessage{content: content}
	}
}

// ratingColor maps a Leetify rating to the embed color matching the roast tier.
func ratingColor(rating float64) int {
	switch {
	case rating > 1.5:
		return colorGreen
	case rating > -3.0:
		return colorYellow
	default:
		return colorRed
	}
}

// buildAPIEmbed renders the post-match analysis for an API-sourced match.
func buildAPIEmbed(m leetify.Match, stats leetify.PlayerStats, profile *leetify.Profile, sel *roast.Selector) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "📊 Post-Anton-Match Analysis",
		Description: sel.PickForRating(stats.LeetifyRating),
		Color:       ratingColor(stats.LeetifyRating),
		Timestamp:   m.FinishedAt.UTC().Format(time.RFC3339),
	}

	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "​", Value: "**Match Stats:**"},
		inlineField("💀 Kills", stats.TotalKills),
		inlineField("🪦 Deaths", stats.TotalDeaths),
		&discordgo.MessageEmbedField{Name: "🎯 K/D", Value: fmt.Sprintf("┗ ` %.2f `", stats.KDRatio), Inline: true},
		inlineField("🏆 MVPs", stats.MVPs),
		inlineField("🤝 Assists", stats.TotalAssists),
		inlineField("🥊 Damage", stats.TotalDamage),
	)

	if profile != nil {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "​", Value: "**Post-Match Stats:**"},
			&discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("Win Rate - %.0f%%", profile.Winrate*100),
				Value: ProgressBar(profile.Winrate, 45),
			},
			&discordgo.MessageEmbedField{Name: "Premier Rank", Value: fmt.Sprintf("┗ ` %d `", profile.Ranks.Premier), Inline: true},
			&discordgo.MessageEmbedField{Name: "Faceit Rank", Value: fmt.Sprintf("┗ ` %d `", profile.Ranks.Faceit), Inline: true},
			&discordgo.MessageEmbedField{Name: "Leetify Rating", Value: fmt.Sprintf("┗ ` %.2f `", profile.Ranks.Leetify), Inline: true},
		)
	}

	if len(m.TeamScores) >= 2 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s - %d:%d", m.MapName, m.TeamScores[0].Score, m.TeamScores[1].Score),
		}
	} else {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: m.MapName}
	}
	return embed
}

func inlineField(name string, v int) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: fmt.Sprintf("┗ ` %d `", v), Inline: true}
}
