// Package grouping turns a flat message log into day buckets with per-message
// display flags. Nothing here is stored; callers regroup on every render.
package grouping

import (
	"time"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"

	dayLayout  = "Monday, January 2, 2006"
	timeLayout = "15:04"
)

// Grouper binds the clock and the viewer's location.
type Grouper struct {
	Now      func() time.Time
	Location *time.Location
}

func NewGrouper(loc *time.Location) *Grouper {
	return &Grouper{Now: time.Now, Location: loc}
}

func (g *Grouper) Group(messages []*domain.Message) []domain.DisplayGroup {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Group(messages, now(), g.Location)
}

// Group partitions messages into contiguous same-day runs (in loc, local time
// when nil) and marks sender runs inside each day: the first message of a run
// shows the identity marker, the last one shows the timestamp.
func Group(messages []*domain.Message, now time.Time, loc *time.Location) []domain.DisplayGroup {
	if len(messages) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	today := startOfDay(now, loc)
	var groups []domain.DisplayGroup

	for _, m := range messages {
		day := startOfDay(m.CreatedAt, loc)
		if n := len(groups); n == 0 || !groups[n-1].Day.Equal(day) {
			groups = append(groups, domain.DisplayGroup{
				DayLabel: DayLabel(day, today),
				Day:      day,
			})
		}
		g := &groups[len(groups)-1]
		g.Messages = append(g.Messages, domain.DisplayMessage{
			Message:   m,
			TimeLabel: m.CreatedAt.In(loc).Format(timeLayout),
		})
	}

	for gi := range groups {
		markRuns(groups[gi].Messages)
	}
	return groups
}

func markRuns(msgs []domain.DisplayMessage) {
	for i := range msgs {
		author := msgs[i].Message.Author
		msgs[i].Flags = domain.DisplayFlags{
			ShowIdentityMarker: i == 0 || msgs[i-1].Message.Author != author,
			ShowTimestamp:      i == len(msgs)-1 || msgs[i+1].Message.Author != author,
		}
	}
}

// DayLabel names day relative to today. Both must be midnights in the same location.
func DayLabel(day, today time.Time) string {
	switch {
	case day.Equal(today):
		return LabelToday
	case day.Equal(today.AddDate(0, 0, -1)):
		return LabelYesterday
	default:
		return day.Format(dayLayout)
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
