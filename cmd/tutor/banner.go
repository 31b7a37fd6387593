package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerDimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	bannerBlueStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	bannerRedStyle     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	bannerTitleStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	bannerTaglineStyle = lipgloss.NewStyle().Foreground(colorPrimaryLight).Italic(true)
	bannerVersionStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

func renderBanner() string {
	dot := style(bannerDimStyle, "·")
	blue := style(bannerBlueStyle, "◆")
	red := style(bannerRedStyle, "◆")
	title := style(bannerTitleStyle, "ГОВОРИ")

	lines := []string{
		"      " + dot + " " + blue + " " + dot + " " + red + " " + dot,
		"    " + dot + "   " + title + "   " + dot,
		"      " + dot + " " + red + " " + dot + " " + blue + " " + dot,
	}
	return strings.Join(lines, "\n")
}

func renderBannerWithTagline() string {
	tagline := style(bannerTaglineStyle, "   russian talk tutor")
	ver := style(bannerVersionStyle, "         "+version)
	return strings.Join([]string{renderBanner(), tagline, ver}, "\n")
}
