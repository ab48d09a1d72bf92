package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/slotproxy/internal/config"
)

func TestBuildQuery(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		cfg       config.Mutable
		wantStart time.Time
		wantEnd   time.Time
		wantQuery string
		wantEmpty bool
	}{
		{
			name:      "default window",
			cfg:       config.Mutable{CalendarID: "cal@example.com", QueryTerm: "SPRINT-SLOT", DaysRange: 30},
			wantStart: now,
			wantEnd:   time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
			wantQuery: "SPRINT-SLOT",
		},
		{
			name:      "min offset",
			cfg:       config.Mutable{CalendarID: "cal@example.com", MinOffsetDays: 2, DaysRange: 7},
			wantStart: time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 6, 8, 9, 30, 0, 0, time.UTC),
		},
		{
			name:      "blank query term means no filter",
			cfg:       config.Mutable{CalendarID: "cal@example.com", QueryTerm: "   ", DaysRange: 1},
			wantStart: now,
			wantEnd:   now.AddDate(0, 0, 1),
		},
		{
			name:      "offset beyond range is empty",
			cfg:       config.Mutable{CalendarID: "cal@example.com", MinOffsetDays: 10, DaysRange: 5},
			wantStart: now.AddDate(0, 0, 10),
			wantEnd:   now.AddDate(0, 0, 5),
			wantEmpty: true,
		},
		{
			name:      "offset equal to range is empty",
			cfg:       config.Mutable{CalendarID: "cal@example.com", MinOffsetDays: 5, DaysRange: 5},
			wantStart: now.AddDate(0, 0, 5),
			wantEnd:   now.AddDate(0, 0, 5),
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, q := BuildQuery(tt.cfg, now)

			assert.Equal(t, tt.wantStart, window.Start)
			assert.Equal(t, tt.wantEnd, window.End)
			assert.Equal(t, tt.wantEmpty, window.Empty())

			assert.Equal(t, tt.cfg.CalendarID, q.CalendarID)
			assert.Equal(t, window.Start, q.TimeMin)
			assert.Equal(t, window.End, q.TimeMax)
			assert.True(t, q.SingleEvents)
			assert.Equal(t, OrderByStartTime, q.OrderBy)
			assert.Equal(t, tt.wantQuery, q.Query)
		})
	}
}

func TestBuildQuery_WindowOrdering(t *testing.T) {
	now := time.Date(2025, 3, 29, 23, 0, 0, 0, time.UTC)
	for offset := 0; offset <= 10; offset++ {
		for days := 1; days <= 10; days++ {
			window, _ := BuildQuery(config.Mutable{CalendarID: "c", MinOffsetDays: offset, DaysRange: days}, now)
			assert.Equal(t, now.AddDate(0, 0, offset), window.Start)
			assert.Equal(t, now.AddDate(0, 0, days), window.End)
			if offset < days {
				assert.False(t, window.Empty(), "offset=%d days=%d", offset, days)
				assert.True(t, window.Start.Before(window.End))
			} else {
				assert.True(t, window.Empty(), "offset=%d days=%d", offset, days)
			}
		}
	}
}
