package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

var (
	dayStyle    = color.New(color.FgCyan, color.Bold)
	agentStyle  = color.New(color.FgGreen, color.Bold)
	userStyle   = color.New(color.FgBlue, color.Bold)
	timeStyle   = color.New(color.Faint)
	promptStyle = color.New(color.FgBlue)
	noticeStyle = color.New(color.FgYellow)
	errorStyle  = color.New(color.FgRed)
)

func renderGroups(w io.Writer, groups []domain.DisplayGroup) {
	for _, g := range groups {
		renderDayHeader(w, g.DayLabel)
		for _, dm := range g.Messages {
			renderMessage(w, dm)
		}
	}
}

// renderLatest prints only the newest message, with the flags it has in the
// full timeline.
func renderLatest(w io.Writer, groups []domain.DisplayGroup) {
	if len(groups) == 0 {
		return
	}
	last := groups[len(groups)-1]
	if len(last.Messages) == 0 {
		return
	}
	renderMessage(w, last.Messages[len(last.Messages)-1])
}

func renderDayHeader(w io.Writer, label string) {
	fmt.Fprintf(w, "\n%s\n", dayStyle.Sprintf("── %s ──", label))
}

func renderMessage(w io.Writer, dm domain.DisplayMessage) {
	if dm.Flags.ShowIdentityMarker {
		fmt.Fprintln(w, authorLabel(dm.Message.Author))
	}
	fmt.Fprintf(w, "  %s\n", dm.Message.Text)
	if dm.Flags.ShowTimestamp {
		fmt.Fprintf(w, "  %s\n", timeStyle.Sprint(dm.TimeLabel))
	}
}

func authorLabel(r domain.Role) string {
	if r == domain.RoleAgent {
		return agentStyle.Sprint("Farum")
	}
	return userStyle.Sprint("You")
}

func renderExplain(w io.Writer, res *conversation.SubmitResult, elapsed time.Duration) {
	r := res.Resolution
	path := make([]string, 0, len(r.Path))
	for _, s := range r.Path {
		path = append(path, string(s))
	}

	detail := string(r.Source)
	if r.Category != "" {
		detail += "/" + string(r.Category)
	}
	fmt.Fprintln(w, timeStyle.Sprintf("  [%s via %s in %s]", detail, strings.Join(path, " → "), elapsed.Round(time.Millisecond)))
}
