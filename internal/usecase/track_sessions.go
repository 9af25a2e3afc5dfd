package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/playtime-tracker/internal/adapter/classifier"
	"github.com/user/playtime-tracker/internal/adapter/metrics"
	"github.com/user/playtime-tracker/internal/domain"
)

// asyncTimeout bounds the off-path work spawned after a session transition
// (profile lookup, notification push). It never delays the ingest path.
const asyncTimeout = 10 * time.Second

// SessionEventSink receives live session events for broadcast. Publish must
// never block.
type SessionEventSink interface {
	Publish(ev domain.SessionEvent)
}

// pendingIdentity is one partially-resolved connection attempt: a steam id
// waiting for a session handle, or a steam id + handle pair waiting for the
// join line that carries the display name.
type pendingIdentity struct {
	steamID string
	handle  string
	seenAt  time.Time
}

// TrackSessionsUseCase is the correlation engine. It joins the three
// independently-emitted connect events into one session row and matches
// disconnects against open sessions.
//
// Positional matching invariant: the steam-authentication and
// handle-assignment lines carry no shared key, so the oldest unmatched steam
// id claims the next assigned handle. This holds because the server emits
// the two lines in stable relative order per connection, which is why all
// state mutation is funneled through a single writer: the engine's mutex
// covers a whole batch, and lines within a batch apply in received order.
type TrackSessionsUseCase struct {
	store    domain.SessionRepository
	profiles domain.ProfileResolver // optional
	notifier domain.Notifier        // optional
	sink     SessionEventSink       // optional
	metrics  *metrics.TrackerMetrics
	logger   *slog.Logger
	now      func() time.Time

	mu              sync.Mutex
	awaitingSession []pendingIdentity          // FIFO of steam ids awaiting a handle
	awaitingJoin    map[string]pendingIdentity // handle -> identity awaiting the join line

	async sync.WaitGroup
}

// NewTrackSessionsUseCase creates the correlation engine. The profile
// resolver, notifier, event sink and metrics may each be nil.
func NewTrackSessionsUseCase(
	store domain.SessionRepository,
	profiles domain.ProfileResolver,
	notifier domain.Notifier,
	sink SessionEventSink,
	m *metrics.TrackerMetrics,
	logger *slog.Logger,
) *TrackSessionsUseCase {
	return &TrackSessionsUseCase{
		store:        store,
		profiles:     profiles,
		notifier:     notifier,
		sink:         sink,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
		awaitingJoin: make(map[string]pendingIdentity),
	}
}

// ApplyBatch processes an ordered batch of shipped log lines and returns one
// result per line. The engine mutex is held for the whole batch so that
// concurrent callers cannot interleave lines and corrupt positional
// matching; the log stream's own order encodes temporal causality.
func (uc *TrackSessionsUseCase) ApplyBatch(ctx context.Context, lines []domain.RawLogLine) []domain.LineResult {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	batchID := uuid.NewString()
	results := make([]domain.LineResult, 0, len(lines))
	for _, line := range lines {
		res := uc.apply(ctx, line)
		uc.countOutcome(res.Outcome)
		if res.Outcome == domain.OutcomeError {
			uc.logger.Error("failed to apply log line", "batch_id", batchID, "log_id", res.LogID, "error", res.Error)
		}
		results = append(results, res)
	}
	uc.updatePendingGauges()
	return results
}

// apply handles a single line. Callers must hold uc.mu.
func (uc *TrackSessionsUseCase) apply(ctx context.Context, line domain.RawLogLine) domain.LineResult {
	at := line.ReceivedAt
	if at.IsZero() {
		at = uc.now()
	}

	ev := classifier.Classify(line.Text, at)
	logID := line.LogID
	if logID == "" {
		logID = classifier.RecordID(ev)
	}

	switch ev.Kind {
	case domain.EventSteamAuthenticated:
		return uc.applySteamAuthenticated(ctx, logID, ev)
	case domain.EventSessionAssigned:
		return uc.applySessionAssigned(ctx, logID, ev)
	case domain.EventPlayerJoined:
		return uc.applyPlayerJoined(ctx, logID, ev)
	case domain.EventPlayerLeft:
		return uc.applyPlayerLeft(ctx, logID, ev)
	default:
		uc.logger.Debug("unrecognized log line", "log_id", logID, "text", line.Text)
		return domain.LineResult{LogID: logID, Outcome: domain.OutcomeUnrecognized}
	}
}

// applySteamAuthenticated pushes the steam id onto the FIFO queue of
// identities awaiting a session handle. No session row yet.
func (uc *TrackSessionsUseCase) applySteamAuthenticated(ctx context.Context, logID string, ev domain.LogEvent) domain.LineResult {
	rec := domain.ProcessedLog{
		LogID:       logID,
		ProcessedAt: uc.now(),
		SteamID:     ev.SteamID,
		Action:      domain.ActionAuthenticated,
	}
	if err := uc.store.Admit(ctx, rec); err != nil {
		return uc.admitResult(logID, err)
	}

	uc.awaitingSession = append(uc.awaitingSession, pendingIdentity{steamID: ev.SteamID, seenAt: ev.At})
	return domain.LineResult{LogID: logID, Outcome: domain.OutcomeApplied}
}

// applySessionAssigned pairs the oldest queued steam id with the assigned
// handle. An empty queue is a correlation mismatch: the handle still gets a
// pending entry, keyed by an unknown identity, rather than dropping the
// connection.
func (uc *TrackSessionsUseCase) applySessionAssigned(ctx context.Context, logID string, ev domain.LogEvent) domain.LineResult {
	rec := domain.ProcessedLog{
		LogID:         logID,
		ProcessedAt:   uc.now(),
		SessionHandle: ev.SessionHandle,
		Action:        domain.ActionAssigned,
	}
	if err := uc.store.Admit(ctx, rec); err != nil {
		return uc.admitResult(logID, err)
	}

	outcome := domain.OutcomeApplied
	var id pendingIdentity
	if len(uc.awaitingSession) > 0 {
		id = uc.awaitingSession[0]
		uc.awaitingSession = uc.awaitingSession[1:]
	} else {
		id = pendingIdentity{steamID: domain.UnknownSteamID}
		outcome = domain.OutcomeMismatch
		uc.countMismatch()
		uc.logger.Warn("session handle assigned with empty identity queue", "handle", ev.SessionHandle, "log_id", logID)
	}
	id.handle = ev.SessionHandle
	id.seenAt = ev.At
	uc.awaitingJoin[ev.SessionHandle] = id

	return domain.LineResult{LogID: logID, Outcome: outcome}
}

// applyPlayerJoined resolves the pending identity for the handle and opens a
// durable session row. A missing pending entry is a correlation mismatch;
// the session is still opened with an unknown steam id.
func (uc *TrackSessionsUseCase) applyPlayerJoined(ctx context.Context, logID string, ev domain.LogEvent) domain.LineResult {
	outcome := domain.OutcomeApplied
	id, found := uc.awaitingJoin[ev.SessionHandle]
	if !found {
		id = pendingIdentity{steamID: domain.UnknownSteamID, handle: ev.SessionHandle}
		outcome = domain.OutcomeMismatch
		uc.countMismatch()
		uc.logger.Warn("player joined with no prior session assignment", "handle", ev.SessionHandle, "username", ev.Username, "log_id", logID)
	}

	rec := domain.ProcessedLog{
		LogID:         logID,
		ProcessedAt:   uc.now(),
		SteamID:       id.steamID,
		SessionHandle: ev.SessionHandle,
		Action:        domain.ActionConnected,
	}

	open, err := uc.store.FindOpenByHandle(ctx, ev.SessionHandle)
	if err != nil {
		return domain.LineResult{LogID: logID, Outcome: domain.OutcomeError, Error: err.Error()}
	}
	if open != nil {
		// At most one open session per handle. The row already exists, so
		// this join only gets admitted to the ledger.
		if err := uc.store.Admit(ctx, rec); err != nil {
			return uc.admitResult(logID, err)
		}
		delete(uc.awaitingJoin, ev.SessionHandle)
		uc.logger.Info("join for handle with session already open, skipping insert", "handle", ev.SessionHandle, "session_id", open.ID)
		return domain.LineResult{LogID: logID, Outcome: outcome}
	}

	s := &domain.Session{
		SteamID:       id.steamID,
		SessionHandle: ev.SessionHandle,
		Username:      ev.Username,
		Date:          ev.At.Format(domain.DateLayout),
		ConnectTime:   ev.At.Format(domain.ClockLayout),
	}
	if err := uc.store.OpenSession(ctx, rec, s); err != nil {
		// The pending entry survives a store failure so a retried delivery
		// can still resolve the identity.
		return uc.admitResult(logID, err)
	}
	delete(uc.awaitingJoin, ev.SessionHandle)

	if uc.metrics != nil {
		uc.metrics.OpenSessions.Inc()
	}
	uc.logger.Info("session opened", "session_id", s.ID, "steam_id", s.SteamID, "handle", s.SessionHandle, "username", s.Username)
	uc.afterOpen(*s, ev.At)

	return domain.LineResult{LogID: logID, Outcome: outcome}
}

// applyPlayerLeft closes the open session for the handle, splitting it into
// per-day rows when it crossed one or more midnights. A disconnect with no
// open session is an orphan: admitted to the ledger, no session mutation.
func (uc *TrackSessionsUseCase) applyPlayerLeft(ctx context.Context, logID string, ev domain.LogEvent) domain.LineResult {
	rec := domain.ProcessedLog{
		LogID:         logID,
		ProcessedAt:   uc.now(),
		SessionHandle: ev.SessionHandle,
		Action:        domain.ActionDisconnected,
	}

	open, err := uc.store.FindOpenByHandle(ctx, ev.SessionHandle)
	if err != nil {
		return domain.LineResult{LogID: logID, Outcome: domain.OutcomeError, Error: err.Error()}
	}
	if open == nil {
		if err := uc.store.Admit(ctx, rec); err != nil {
			return uc.admitResult(logID, err)
		}
		uc.countOrphan()
		uc.logger.Warn("disconnect with no open session", "handle", ev.SessionHandle, "log_id", logID)
		return domain.LineResult{LogID: logID, Outcome: domain.OutcomeOrphan}
	}

	rec.SteamID = open.SteamID
	closing := domain.SplitAtMidnights(*open, ev.At)
	if err := uc.store.CloseSession(ctx, rec, open.ID, closing.DisconnectTime, closing.PlaytimeSeconds, closing.Rollover); err != nil {
		return uc.admitResult(logID, err)
	}

	if uc.metrics != nil {
		uc.metrics.OpenSessions.Dec()
	}
	uc.logger.Info("session closed",
		"session_id", open.ID,
		"steam_id", open.SteamID,
		"handle", open.SessionHandle,
		"playtime_seconds", closing.TotalSeconds(),
		"rollover_rows", len(closing.Rollover),
	)
	uc.afterClose(*open, ev.At, closing.TotalSeconds())

	return domain.LineResult{LogID: logID, Outcome: domain.OutcomeApplied}
}

// admitResult maps a ledger/store error to a line result.
func (uc *TrackSessionsUseCase) admitResult(logID string, err error) domain.LineResult {
	if errors.Is(err, domain.ErrDuplicateEvent) {
		return domain.LineResult{LogID: logID, Outcome: domain.OutcomeDuplicate}
	}
	return domain.LineResult{LogID: logID, Outcome: domain.OutcomeError, Error: err.Error()}
}

// afterOpen runs the off-path work for a freshly opened session: live event
// broadcast, profile name backfill, connect notification.
func (uc *TrackSessionsUseCase) afterOpen(s domain.Session, at time.Time) {
	uc.publish(domain.SessionEvent{
		Type:          "connected",
		SteamID:       s.SteamID,
		SessionHandle: s.SessionHandle,
		Username:      s.Username,
		At:            at,
	})

	uc.async.Add(1)
	go func() {
		defer uc.async.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		s.ProfileName = uc.resolveProfile(ctx, s)
		uc.notify(ctx, connectNotification(s, at))
	}()
}

// afterClose runs the off-path work for a closed session.
func (uc *TrackSessionsUseCase) afterClose(s domain.Session, at time.Time, totalSeconds int) {
	uc.publish(domain.SessionEvent{
		Type:            "disconnected",
		SteamID:         s.SteamID,
		SessionHandle:   s.SessionHandle,
		Username:        s.Username,
		At:              at,
		PlaytimeSeconds: totalSeconds,
	})

	uc.async.Add(1)
	go func() {
		defer uc.async.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		uc.notify(ctx, disconnectNotification(s, at, totalSeconds))
	}()
}

// resolveProfile looks up the Steam profile name and backfills it onto the
// session row. Any failure degrades to an unset profile name.
func (uc *TrackSessionsUseCase) resolveProfile(ctx context.Context, s domain.Session) string {
	if uc.profiles == nil || s.SteamID == domain.UnknownSteamID {
		return ""
	}
	name, err := uc.profiles.DisplayName(ctx, s.SteamID)
	if err != nil || name == "" {
		uc.logger.Warn("failed to resolve steam profile name", "steam_id", s.SteamID, "error", err)
		return ""
	}
	if err := uc.store.SetProfileName(ctx, s.ID, name); err != nil {
		uc.logger.Warn("failed to backfill profile name", "session_id", s.ID, "error", err)
	}
	return name
}

func (uc *TrackSessionsUseCase) notify(ctx context.Context, n domain.Notification) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.Notify(ctx, n); err != nil {
		if uc.metrics != nil {
			uc.metrics.NotificationsTotal.WithLabelValues("error").Inc()
		}
		uc.logger.Warn("failed to push notification", "title", n.Title, "error", err)
		return
	}
	if uc.metrics != nil {
		uc.metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	}
}

func (uc *TrackSessionsUseCase) publish(ev domain.SessionEvent) {
	if uc.sink != nil {
		uc.sink.Publish(ev)
	}
}

// EvictStale removes pending correlation entries older than the threshold
// and returns how many were dropped. The threshold itself is an external
// policy choice; a non-positive value disables eviction.
func (uc *TrackSessionsUseCase) EvictStale(olderThan time.Duration) int {
	if olderThan <= 0 {
		return 0
	}
	cutoff := uc.now().Add(-olderThan)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	evicted := 0
	kept := uc.awaitingSession[:0]
	for _, id := range uc.awaitingSession {
		if id.seenAt.Before(cutoff) {
			evicted++
			continue
		}
		kept = append(kept, id)
	}
	uc.awaitingSession = kept

	for handle, id := range uc.awaitingJoin {
		if id.seenAt.Before(cutoff) {
			delete(uc.awaitingJoin, handle)
			evicted++
		}
	}

	if evicted > 0 {
		if uc.metrics != nil {
			uc.metrics.EvictedPending.Add(float64(evicted))
		}
		uc.logger.Info("evicted abandoned pending entries", "count", evicted, "older_than", olderThan)
	}
	uc.updatePendingGauges()
	return evicted
}

// PendingCounts reports the sizes of the in-memory pending structures.
func (uc *TrackSessionsUseCase) PendingCounts() (awaitingSession, awaitingJoin int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.awaitingSession), len(uc.awaitingJoin)
}

// Wait blocks until all in-flight off-path work (notifications, profile
// backfills) has finished. Used on shutdown.
func (uc *TrackSessionsUseCase) Wait() {
	uc.async.Wait()
}

func (uc *TrackSessionsUseCase) countOutcome(o domain.Outcome) {
	if uc.metrics != nil {
		uc.metrics.LinesTotal.WithLabelValues(string(o)).Inc()
	}
}

func (uc *TrackSessionsUseCase) countMismatch() {
	if uc.metrics != nil {
		uc.metrics.CorrelationMismatches.Inc()
	}
}

func (uc *TrackSessionsUseCase) countOrphan() {
	if uc.metrics != nil {
		uc.metrics.OrphanDisconnects.Inc()
	}
}

func (uc *TrackSessionsUseCase) updatePendingGauges() {
	if uc.metrics == nil {
		return
	}
	uc.metrics.PendingIdentities.WithLabelValues("awaiting_session").Set(float64(len(uc.awaitingSession)))
	uc.metrics.PendingIdentities.WithLabelValues("awaiting_join").Set(float64(len(uc.awaitingJoin)))
}

// connectNotification renders the player-connect push message.
func connectNotification(s domain.Session, at time.Time) domain.Notification {
	return domain.Notification{
		Title:       "🎮 Player connected",
		Description: fmt.Sprintf("**%s** joined the server!", s.DisplayName()),
		Color:       0x00FF00,
		At:          at,
		Fields: []domain.NotificationField{
			{Name: "Steam ID", Value: "`" + s.SteamID + "`", Inline: true},
			{Name: "Connected at", Value: at.Format(domain.ClockLayout), Inline: true},
		},
	}
}

// disconnectNotification renders the player-disconnect push message.
func disconnectNotification(s domain.Session, at time.Time, totalSeconds int) domain.Notification {
	return domain.Notification{
		Title:       "👋 Player disconnected",
		Description: fmt.Sprintf("**%s** left the server.", s.DisplayName()),
		Color:       0xFF0000,
		At:          at,
		Fields: []domain.NotificationField{
			{Name: "Steam ID", Value: "`" + s.SteamID + "`", Inline: true},
			{Name: "Disconnected at", Value: at.Format(domain.ClockLayout), Inline: true},
			{Name: "Playtime", Value: FormatPlaytime(totalSeconds), Inline: false},
		},
	}
}

// FormatPlaytime renders a duration in whole hours and minutes.
func FormatPlaytime(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
