package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"time"

	"github.com/user/playtime-tracker/internal/domain"
)

// The four line shapes the dedicated server emits for a connection
// lifecycle, in the order they appear in the log.
var (
	reSteamAuthenticated = regexp.MustCompile(`Accepted connection from (\d+)`)
	reSessionAssigned    = regexp.MustCompile(`Connected to userid:(\d+)`)
	rePlayerJoined       = regexp.MustCompile(`\[userid:(\d+)\] player (\S+) connected`)
	rePlayerLeft         = regexp.MustCompile(`Disconnected from userid:(\d+)`)
)

// Classify parses a raw log line into a typed event. Pure and total: any
// line that matches none of the known shapes becomes Unrecognized.
func Classify(text string, at time.Time) domain.LogEvent {
	if m := reSteamAuthenticated.FindStringSubmatch(text); m != nil {
		return domain.LogEvent{Kind: domain.EventSteamAuthenticated, SteamID: m[1], At: at, Raw: text}
	}
	if m := rePlayerJoined.FindStringSubmatch(text); m != nil {
		return domain.LogEvent{Kind: domain.EventPlayerJoined, SessionHandle: m[1], Username: m[2], At: at, Raw: text}
	}
	if m := rePlayerLeft.FindStringSubmatch(text); m != nil {
		return domain.LogEvent{Kind: domain.EventPlayerLeft, SessionHandle: m[1], At: at, Raw: text}
	}
	if m := reSessionAssigned.FindStringSubmatch(text); m != nil {
		return domain.LogEvent{Kind: domain.EventSessionAssigned, SessionHandle: m[1], At: at, Raw: text}
	}
	return domain.LogEvent{Kind: domain.EventUnrecognized, At: at, Raw: text}
}

// RecordID derives the stable dedup identifier for an event from its kind,
// declared fields and raw text. Two deliveries of the same line yield the
// same id regardless of receive order; a shipper-assigned log id, when
// present, takes precedence over this derivation.
func RecordID(ev domain.LogEvent) string {
	h := sha256.New()
	io.WriteString(h, string(ev.Kind))
	for _, field := range []string{ev.SteamID, ev.SessionHandle, ev.Username, ev.Raw} {
		h.Write([]byte{0})
		io.WriteString(h, field)
	}
	return hex.EncodeToString(h.Sum(nil))
}
