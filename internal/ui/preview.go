package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

const (
	ansiReset = "\033[0m"
	upperHalf = "▀"
)

func fg(c color.RGBA) string { return fmt.Sprintf("\033[38;2;%d;%d;%dm", c.R, c.G, c.B) }
func bg(c color.RGBA) string { return fmt.Sprintf("\033[48;2;%d;%d;%dm", c.R, c.G, c.B) }

// previewRow renders cells [from, to) of terminal row r of img as 24-bit
// half blocks: each cell shows pixel row 2r on top and 2r+1 below.
func previewRow(img *image.RGBA, r, from, to int) string {
	if img == nil || from >= to {
		return ""
	}
	b := img.Bounds()
	var sb strings.Builder
	var lastTop, lastBot color.RGBA
	first := true
	for x := from; x < to; x++ {
		top := img.RGBAAt(b.Min.X+x, b.Min.Y+2*r)
		bot := img.RGBAAt(b.Min.X+x, b.Min.Y+2*r+1)
		if first || top != lastTop {
			sb.WriteString(fg(top))
		}
		if first || bot != lastBot {
			sb.WriteString(bg(bot))
		}
		sb.WriteString(upperHalf)
		lastTop, lastBot, first = top, bot, false
	}
	sb.WriteString(ansiReset)
	return sb.String()
}
