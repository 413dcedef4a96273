// Package board derives the read models shown on the public display and the
// admin dashboard from a queue's ticket list.
package board

import (
	"sort"
	"time"

	"qrtrack/internal/models"
)

const recentlyCompletedLimit = 5

type Entry struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	Name      string        `json:"name"`
	Status    models.Status `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type Display struct {
	NowServing        []Entry `json:"nowServing"`
	RecentlyCompleted []Entry `json:"recentlyCompleted"`
}

type Stats struct {
	Total     int `json:"total"`
	Waiting   int `json:"waiting"`
	Serving   int `json:"serving"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// BuildDisplay expects tickets in list order (createdAt ascending).
func BuildDisplay(tickets []models.Ticket) Display {
	display := Display{
		NowServing:        []Entry{},
		RecentlyCompleted: []Entry{},
	}

	var completed []models.Ticket
	for _, ticket := range tickets {
		switch ticket.Status {
		case models.StatusServing, models.StatusNext:
			display.NowServing = append(display.NowServing, entryFor(ticket))
		case models.StatusCompleted:
			completed = append(completed, ticket)
		}
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return lastTouched(completed[i]).After(lastTouched(completed[j]))
	})
	if len(completed) > recentlyCompletedLimit {
		completed = completed[:recentlyCompletedLimit]
	}
	for _, ticket := range completed {
		display.RecentlyCompleted = append(display.RecentlyCompleted, entryFor(ticket))
	}
	return display
}

// BuildStats counts next tickets as serving.
func BuildStats(tickets []models.Ticket) Stats {
	stats := Stats{Total: len(tickets)}
	for _, ticket := range tickets {
		switch ticket.Status {
		case models.StatusWaiting:
			stats.Waiting++
		case models.StatusNext, models.StatusServing:
			stats.Serving++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

func entryFor(ticket models.Ticket) Entry {
	return Entry{
		ID:        ticket.ID,
		Label:     ticket.Label(),
		Name:      ticket.Name,
		Status:    ticket.Status,
		UpdatedAt: lastTouched(ticket),
	}
}

func lastTouched(ticket models.Ticket) time.Time {
	if ticket.UpdatedAt.IsZero() {
		return ticket.CreatedAt
	}
	return ticket.UpdatedAt
}
