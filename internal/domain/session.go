package domain

import (
	"errors"
	"time"
)

const (
	// DateLayout and ClockLayout are the storage formats for session dates
	// and times of day. A session row never spans two dates.
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"

	// DayStartClock and DayEndClock bound a calendar day. A session that
	// crosses midnight is closed at DayEndClock and continued in a new row
	// starting at DayStartClock on the next date.
	DayStartClock = "00:00:00"
	DayEndClock   = "23:59:59"

	// UnknownSteamID is the placeholder identity recorded when a session
	// handle or join event arrives with no matching authentication event.
	UnknownSteamID = "unknown"
)

var (
	// ErrDuplicateEvent is returned by the dedup ledger when a log record id
	// has already been admitted.
	ErrDuplicateEvent = errors.New("log event already processed")

	// ErrNoOpenSession is returned when a close is attempted for a handle
	// with no open session row.
	ErrNoOpenSession = errors.New("no open session for handle")
)

// Session is one per-day slice of a player's time on the server.
type Session struct {
	ID              int64  `json:"id"`
	SteamID         string `json:"steam_id"`
	SessionHandle   string `json:"session_handle"`
	Username        string `json:"username"`
	ProfileName     string `json:"profile_name,omitempty"`
	Date            string `json:"date"`         // DateLayout
	ConnectTime     string `json:"connect_time"` // ClockLayout
	DisconnectTime  string `json:"disconnect_time,omitempty"`
	PlaytimeSeconds int    `json:"playtime_seconds"`
}

// IsOpen reports whether the session has not been closed yet.
func (s *Session) IsOpen() bool { return s.DisconnectTime == "" }

// DisplayName is the player name used in notifications: the in-game username
// with the Steam profile name appended when it was resolved.
func (s *Session) DisplayName() string {
	if s.ProfileName != "" {
		return s.Username + " (" + s.ProfileName + ")"
	}
	return s.Username
}

// ProcessedLog is one row of the dedup ledger. A row's existence is the sole
// source of truth for "this log record was already handled".
type ProcessedLog struct {
	LogID         string
	ProcessedAt   time.Time
	SteamID       string
	SessionHandle string
	Action        string
}

// Ledger actions recorded alongside admitted events.
const (
	ActionAuthenticated = "authenticated"
	ActionAssigned      = "assigned"
	ActionConnected     = "connected"
	ActionDisconnected  = "disconnected"
)

// SecondsBetween returns the whole seconds from one clock time to another on
// the same day, clamped to zero when the range is inverted or unparseable.
func SecondsBetween(from, to string) int {
	a, err := time.Parse(ClockLayout, from)
	if err != nil {
		return 0
	}
	b, err := time.Parse(ClockLayout, to)
	if err != nil {
		return 0
	}
	secs := int(b.Sub(a).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// SessionClose describes how an open session row is finalized: the update to
// the open row, plus any per-day continuation rows when the session crossed
// one or more midnights.
type SessionClose struct {
	DisconnectTime  string
	PlaytimeSeconds int
	Rollover        []Session
}

// TotalSeconds is the playtime across the closed row and all rollover rows.
func (c *SessionClose) TotalSeconds() int {
	total := c.PlaytimeSeconds
	for i := range c.Rollover {
		total += c.Rollover[i].PlaytimeSeconds
	}
	return total
}

// SplitAtMidnights computes the close of an open session at the given
// disconnect instant. When the disconnect date differs from the session's
// date, the open row is closed at DayEndClock and each later day becomes its
// own row: full intervening days run DayStartClock to DayEndClock, and the
// final day runs DayStartClock to the disconnect time.
func SplitAtMidnights(open Session, at time.Time) SessionClose {
	clock := at.Format(ClockLayout)
	eventDate := at.Format(DateLayout)

	// Same day, or the event date sorts before the open date (clock skew):
	// a plain close with no split.
	if eventDate <= open.Date {
		return SessionClose{
			DisconnectTime:  clock,
			PlaytimeSeconds: SecondsBetween(open.ConnectTime, clock),
		}
	}

	openDay, err := time.ParseInLocation(DateLayout, open.Date, at.Location())
	if err != nil {
		return SessionClose{
			DisconnectTime:  clock,
			PlaytimeSeconds: SecondsBetween(open.ConnectTime, clock),
		}
	}
	eventDay, _ := time.ParseInLocation(DateLayout, eventDate, at.Location())

	close := SessionClose{
		DisconnectTime:  DayEndClock,
		PlaytimeSeconds: SecondsBetween(open.ConnectTime, DayEndClock),
	}
	for day := openDay.AddDate(0, 0, 1); !day.After(eventDay); day = day.AddDate(0, 0, 1) {
		seg := Session{
			SteamID:       open.SteamID,
			SessionHandle: open.SessionHandle,
			Username:      open.Username,
			ProfileName:   open.ProfileName,
			Date:          day.Format(DateLayout),
			ConnectTime:   DayStartClock,
		}
		if day.Equal(eventDay) {
			seg.DisconnectTime = clock
		} else {
			seg.DisconnectTime = DayEndClock
		}
		seg.PlaytimeSeconds = SecondsBetween(DayStartClock, seg.DisconnectTime)
		close.Rollover = append(close.Rollover, seg)
	}
	return close
}
