package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/report"
)

// defaultMaps seeds the /stats autocomplete before any API history exists.
var defaultMaps = []string{
	"mirage", "dust2", "inferno", "ancient", "nuke",
	"overpass", "anubis", "vertigo", "train", "cache",
}

var (
	minKillsOpt = float64(0)
	minDaysOpt  = float64(1)
)

var commandDefs = []*discordgo.ApplicationCommand{
	{Name: "status", Description: "Show bot status, limit, and last known match info"},
	{Name: "whoami", Description: "Debug: show your user id, owner status, and dev mode"},
	{
		Name: "setkills", Description: "Set the roast kill limit (owner only)",
		Options: []*discordgo.ApplicationCommandOption{{
			Type: discordgo.ApplicationCommandOptionInteger, Name: "value",
			Description: "New limit (0-50)", Required: true,
			MinValue: &minKillsOpt, MaxValue: 50,
		}},
	},
	{
		Name: "fakegame", Description: "Simulate a finished match (owner only)",
		Options: []*discordgo.ApplicationCommandOption{{
			Type: discordgo.ApplicationCommandOptionInteger, Name: "kills",
			Description: "Kill count (0-50)", Required: true,
			MinValue: &minKillsOpt, MaxValue: 50,
		}},
	},
	{
		Name: "fakekills", Description: "Simulate a finished match with full control (owner only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type: discordgo.ApplicationCommandOptionInteger, Name: "kills",
				Description: "Kill count (0-50)", Required: true,
				MinValue: &minKillsOpt, MaxValue: 50,
			},
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "map_name",
				Description: "Map name (default de_fake)",
			},
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "when",
				Description: "Match time: epoch seconds or ISO 8601 (default now)",
			},
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "stats_json",
				Description: `Extra stats, e.g. {"deaths":4,"adr":85,"hs_percent":45}`,
			},
		},
	},
	{Name: "history", Description: "Anton's kills over the last week (visible to everyone)"},
	{
		Name: "stats", Description: "Aggregated stats, optionally per map",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type: discordgo.ApplicationCommandOptionString, Name: "map_name",
				Description: "Filter by map", Autocomplete: true,
			},
			{
				Type: discordgo.ApplicationCommandOptionInteger, Name: "days",
				Description: "Time window in days (default 30)",
				MinValue:    &minDaysOpt, MaxValue: 365,
			},
			{
				Type: discordgo.ApplicationCommandOptionBoolean, Name: "detail",
				Description: "Include best and worst matches",
			},
		},
	},
	{
		Name: "clearhistory", Description: "Delete ALL match history (owner only, needs confirm)",
		Options: []*discordgo.ApplicationCommandOption{{
			Type: discordgo.ApplicationCommandOptionBoolean, Name: "confirm",
			Description: "Set true to actually delete",
		}},
	},
	{Name: "help", Description: "Show commands"},
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

// ---- /status ----

func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count := -1
	var last *db.Match
	if b.store != nil {
		if n, err := b.store.CountMatches(ctx); err == nil {
			count = n
		}
		if recent, err := b.store.RecentMatches(ctx, 1); err == nil && len(recent) > 0 {
			last = &recent[0]
		}
	}
	st := b.proc.Status()
	respond(s, i, statusMessage(b.opts.ChannelID, b.opts.Steam64, st.LastPhase, st.KillsMax, count, last), true)
}

func statusMessage(channelID, steam64, lastPhase string, killsMax, count int, last *db.Match) string {
	steamStr := steam64
	if steamStr == "" {
		steamStr = "NOT SET"
	}
	if lastPhase == "" {
		lastPhase = "unknown"
	}
	lines := []string{
		"✅ **Status**",
		fmt.Sprintf("• Channel: `%s`", channelID),
		fmt.Sprintf("• Anton Steam64: `%s`", steamStr),
		fmt.Sprintf("• Roast if Anton kills ≤ **%d**", killsMax),
		fmt.Sprintf("• Last phase: `%s`", lastPhase),
	}
	if count >= 0 {
		lines = append(lines, fmt.Sprintf("• Matches recorded: `%d`", count))
	}
	if last != nil {
		mapStr := last.Map
		if mapStr == "" {
			mapStr = "unknown"
		}
		lines = append(lines,
			fmt.Sprintf("• Last map: `%s`", mapStr),
			fmt.Sprintf("• Last Anton kills: `%d`", last.Kills))
	} else {
		lines = append(lines, "• Last map: `unknown`", "• Last Anton kills: `unknown`")
	}
	return strings.Join(lines, "\n")
}

// ---- /whoami ----

func (b *Bot) handleWhoami(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	respond(s, i, whoamiMessage(userID, b.opts.OwnerID, b.opts.DevMode, b.isOwner(i)), true)
}

func whoamiMessage(userID, ownerID string, devMode, allowed bool) string {
	dm := "OFF"
	if devMode {
		dm = "ON"
	}
	return fmt.Sprintf("Your id: `%s`\nBOT_OWNER_ID: `%s`\nDEV_MODE: `%s`\nOwner allowed: `%t`",
		userID, ownerID, dm, allowed)
}

// ---- /setkills ----

func (b *Bot) handleSetKills(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		respond(s, i, "❌ Owner only.", true)
		return
	}
	value := int(optionMap(i)["value"].IntValue())
	if err := b.proc.SetKillsMax(value); err != nil {
		respond(s, i, "❌ Pick a sensible number (0-50).", true)
		return
	}
	respond(s, i, fmt.Sprintf("🔧 Anton kill-limit set to **%d**.", value), true)
}

// ---- /fakegame and /fakekills ----

func (b *Bot) handleFakeGame(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		respond(s, i, "❌ Owner only.", true)
		return
	}
	kills := int(optionMap(i)["kills"].IntValue())
	respond(s, i, fmt.Sprintf("🧪 Fake game queued: Anton = **%d kills**.", kills), true)
	b.injectAsync(kills, "de_fake", time.Time{}, nil)
}

func (b *Bot) handleFakeKills(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		respond(s, i, "❌ Owner only.", true)
		return
	}
	opts := optionMap(i)
	kills := int(opts["kills"].IntValue())
	mapName := "de_fake"
	if o, ok := opts["map_name"]; ok {
		mapName = o.StringValue()
	}

	var at time.Time
	if o, ok := opts["when"]; ok {
		parsed, err := parseWhen(o.StringValue())
		if err != nil {
			respond(s, i, "❌ Invalid time format. Use epoch seconds or ISO 8601, e.g. '2025-12-31T20:00:00'.", true)
			return
		}
		at = parsed
	}

	var extra map[string]float64
	if o, ok := opts["stats_json"]; ok {
		parsed, err := parseStatsJSON(o.StringValue())
		if err != nil {
			respond(s, i, fmt.Sprintf("❌ Invalid stats JSON: %v", err), true)
			return
		}
		extra = parsed
	}

	confirm := fmt.Sprintf("🧪 Fake kills queued: Anton = **%d kills** on **%s**", kills, mapName)
	if !at.IsZero() {
		confirm += fmt.Sprintf(" at `%s UTC`", at.UTC().Format(time.RFC3339))
	}
	respond(s, i, confirm+".", true)
	b.injectAsync(kills, mapName, at, extra)
}

func (b *Bot) injectAsync(kills int, mapName string, at time.Time, extra map[string]float64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := b.proc.InjectSynthetic(ctx, kills, mapName, at, extra); err != nil {
			slog.Error("synthetic match injection failed", slog.Any("err", err))
		}
	}()
}

// parseWhen accepts epoch seconds or ISO 8601 (with or without zone), UTC assumed.
func parseWhen(s string) (time.Time, error) {
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parseStatsJSON decodes a flat JSON object of numeric stats. Non-numeric values are
// rejected so the payload builder never sees garbage.
func parseStatsJSON(s string) (map[string]float64, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("stat %q is not a number", k)
		}
		out[k] = n
	}
	return out, nil
}

// ---- /history ----

func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const days = 7
	matches, err := b.store.MatchesSince(ctx, time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		respond(s, i, "❌ Could not read history.", true)
		return
	}
	respond(s, i, historyMessage(matches, days, time.Now()), false)
}

func historyMessage(matches []db.Match, days int, now time.Time) string {
	if len(matches) == 0 {
		return "📉 No match data recorded yet."
	}
	sum := report.Summarize(matches)
	buckets := report.DailyBuckets(matches, days, now)

	lines := []string{
		fmt.Sprintf("📊 **Anton kills - last %d days**", days),
		fmt.Sprintf("Matches: **%d** | Avg: **%.1f** | Min: **%d** | Max: **%d**",
			sum.Count, sum.Avg, sum.Min, sum.Max),
		fmt.Sprintf("`%s`", report.DailySparkline(buckets)),
		"```",
	}
	for _, bkt := range buckets {
		day := bkt.Day.Format("2006-01-02")
		if bkt.Count == 0 {
			lines = append(lines, day+"  -")
			continue
		}
		plural := "es"
		if bkt.Count == 1 {
			plural = ""
		}
		lines = append(lines, fmt.Sprintf("%s  avg %.1f  (%d match%s)", day, bkt.Avg, bkt.Count, plural))
	}
	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

// ---- /stats ----

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	days := 30
	if o, ok := opts["days"]; ok {
		days = int(o.IntValue())
	}
	mapName := ""
	if o, ok := opts["map_name"]; ok {
		mapName = o.StringValue()
	}
	detail := false
	if o, ok := opts["detail"]; ok {
		detail = o.BoolValue()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	matches, err := b.store.MatchesSince(ctx, time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		respond(s, i, "❌ Could not read history.", true)
		return
	}
	if mapName != "" {
		matches = report.FilterByMap(matches, mapName)
	}

	msg := statsMessage(matches, mapName, days, detail, time.Now())
	if b.opts.Steam64 != "" {
		norm := ""
		if mapName != "" {
			norm = report.NormalizeMap(mapName)
		}
		if sums, err := b.store.MapSummaries(ctx, b.opts.Steam64, norm); err == nil && len(sums) > 0 {
			msg += "\n\n" + mapSummaryBlock(sums)
		}
	}
	respond(s, i, msg, false)
}

// mapSummaryBlock renders the per-map API record, most played first.
func mapSummaryBlock(sums []db.MapSummary) string {
	lines := []string{"🗺️ **Leetify record:**"}
	for idx, s := range sums {
		if idx == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("• %s: %dW-%dL over %d games | %.1f kills avg | rating %+.2f",
			s.MapName, s.Wins, s.Losses, s.Games, s.AvgKills, s.AvgRating))
	}
	return strings.Join(lines, "\n")
}

func statsMessage(matches []db.Match, mapName string, days int, detail bool, now time.Time) string {
	if len(matches) == 0 {
		return "📉 No match data for this query."
	}
	title := mapName
	if title == "" {
		title = "all maps"
	}
	sum := report.Summarize(matches)
	agg := report.AggregateStats(matches)

	lines := []string{
		fmt.Sprintf("📊 **Anton stats - %s - last %d days**", title, days),
		fmt.Sprintf("Matches: **%d** | Avg kills: **%.2f**", sum.Count, sum.Avg),
	}
	if v, ok := agg["adr"]; ok {
		lines = append(lines, fmt.Sprintf("ADR: **%.1f**", v))
	}
	if v, ok := agg["hs_percent"]; ok {
		lines = append(lines, fmt.Sprintf("HS%%: **%.1f%%**", v))
	}
	if v, ok := agg["kd"]; ok {
		lines = append(lines, fmt.Sprintf("K/D: **%.2f**", v))
	}
	lines = append(lines, fmt.Sprintf("`%s`", report.DailySparkline(report.DailyBuckets(matches, days, now))))

	if detail {
		lines = append(lines, matchList("Top matches:", report.TopN(matches, 3))...)
		lines = append(lines, matchList("Worst matches:", report.BottomN(matches, 3))...)
	}
	return strings.Join(lines, "\n")
}

func matchList(header string, matches []db.Match) []string {
	if len(matches) == 0 {
		return nil
	}
	lines := []string{"", header}
	for _, m := range matches {
		mapStr := m.Map
		if mapStr == "" {
			mapStr = "unknown"
		}
		lines = append(lines, fmt.Sprintf("• %s | %s | **%d kills**",
			m.TS.UTC().Format("2006-01-02 15:04"), mapStr, m.Kills))
	}
	return lines
}

func (b *Bot) handleStatsAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	current := ""
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "map_name" && o.Focused {
			current = o.StringValue()
		}
	}

	known := defaultMaps
	if b.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if fromDB, err := b.store.KnownMaps(ctx, b.opts.Steam64); err == nil && len(fromDB) > 0 {
			known = mergeMaps(defaultMaps, fromDB)
		}
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 25)
	for _, m := range filterChoices(known, current) {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: m, Value: m})
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		slog.Error("autocomplete respond", slog.Any("err", err))
	}
}

func mergeMaps(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range append(append([]string{}, a...), b...) {
		n := report.NormalizeMap(m)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// filterChoices narrows map names by substring, capped at Discord's 25-choice limit.
func filterChoices(known []string, current string) []string {
	cur := strings.ToLower(strings.TrimSpace(current))
	var out []string
	for _, m := range known {
		if cur == "" || strings.Contains(strings.ToLower(m), cur) {
			out = append(out, m)
		}
		if len(out) == 25 {
			break
		}
	}
	return out
}

// ---- /clearhistory ----

func (b *Bot) handleClearHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		respond(s, i, "❌ Owner only.", true)
		return
	}
	opts := optionMap(i)
	if o, ok := opts["confirm"]; !ok || !o.BoolValue() {
		respond(s, i, "⚠️ This will delete ALL match history (database + audit log). Run again with `confirm: true` to proceed.", true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Backup first so a copy of the audit log survives the wipe.
	backup := ""
	if b.audit != nil {
		if bak, err := b.audit.Backup(); err == nil {
			backup = bak
		}
	}
	removed, err := b.store.ClearMatches(ctx)
	if err != nil {
		respond(s, i, fmt.Sprintf("❌ Clear failed: %v", err), true)
		return
	}
	if b.audit != nil {
		if err := b.audit.Truncate(); err != nil {
			slog.Warn("audit truncate failed", slog.Any("err", err))
		}
	}
	b.proc.ResetState()

	msg := fmt.Sprintf("✅ History cleared. Rows removed: %d.", removed)
	if backup != "" {
		msg += fmt.Sprintf(" Audit log backed up to `%s`.", backup)
	}
	respond(s, i, msg, true)
}

// ---- /help ----

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respond(s, i, helpMessage(), true)
}

func helpMessage() string {
	return strings.Join([]string{
		"🛠️ **Commands**",
		"• `/status` - bot status (only you see it)",
		"• `/whoami` - your id and owner status",
		"• `/setkills <value>` - change the roast limit (owner only)",
		"• `/fakegame <kills>` - simulate a finished match (owner only)",
		"• `/fakekills <kills> [map_name] [when] [stats_json]` - simulate with full control (owner only)",
		"• `/history` - last 7 days (visible to everyone)",
		"• `/stats [map_name] [days] [detail]` - aggregated stats, map autocomplete available",
		"• `/clearhistory confirm:true` - wipe history (owner only)",
		"",
		"The bot posts automatically when a match ends. Set `DEV_MODE=1` to open owner commands to everyone for testing.",
	}, "\n")
}
