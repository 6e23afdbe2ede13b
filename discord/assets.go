package discord

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Assets resolves image files shipped alongside the bot. Every lookup falls back to a
// misc image so a missing file never blocks a post.
type Assets struct {
	Dir string
}

// MapImage returns the image path for a map, or the misc fallback. The returned bool
// reports whether any usable file exists.
func (a Assets) MapImage(mapName string) (string, bool) {
	p := filepath.Join(a.Dir, "maps", mapName+".png")
	if fileExists(p) {
		return p, true
	}
	fallback := filepath.Join(a.Dir, "maps", "misc.png")
	return fallback, fileExists(fallback)
}

// ResultImage returns the win/loss/tie image for a match outcome.
func (a Assets) ResultImage(outcome string) (string, bool) {
	p := filepath.Join(a.Dir, "match", outcome+".png")
	return p, fileExists(p)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// ProgressBar renders a winrate as a green/red ANSI bar inside a code block, the way
// Discord colors ```ansi fences.
func ProgressBar(winrate float64, width int) string {
	if winrate < 0 {
		winrate = 0
	}
	if winrate > 1 {
		winrate = 1
	}
	filled := int(winrate * float64(width))

	const (
		green = "\x1b[32;1m"
		red   = "\x1b[31;1m"
		reset = "\x1b[0;0m"
	)
	bar := green + strings.Repeat("■", filled) + red + strings.Repeat("■", width-filled) + reset
	return fmt.Sprintf("```ansi\n%s\n```", bar)
}
