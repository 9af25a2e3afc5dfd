package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/playtime-tracker/internal/domain"
)

const topPlayersLimit = 5

// ReportUseCase renders playtime summaries over committed session rows and
// pushes them through the notifier. It carries no correlation logic.
type ReportUseCase struct {
	stats    domain.StatsRepository
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewReportUseCase creates a new ReportUseCase.
func NewReportUseCase(stats domain.StatsRepository, notifier domain.Notifier, logger *slog.Logger) *ReportUseCase {
	return &ReportUseCase{
		stats:    stats,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SendDaily pushes the previous day's per-player playtime plus the
// cumulative top players.
func (uc *ReportUseCase) SendDaily(ctx context.Context) error {
	yesterday := uc.now().AddDate(0, 0, -1).Format(domain.DateLayout)

	daily, err := uc.stats.PlaytimeOnDate(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("load daily playtime: %w", err)
	}
	top, err := uc.stats.TopPlayers(ctx, topPlayersLimit)
	if err != nil {
		return fmt.Errorf("load top players: %w", err)
	}

	n := domain.Notification{
		Title:       "📊 Daily playtime report",
		Description: "Summary of yesterday's activity.",
		Color:       0x0099FF,
		At:          uc.now(),
	}

	if len(daily) > 0 {
		var b strings.Builder
		for _, row := range daily {
			fmt.Fprintf(&b, "**%s**: %s (%d sessions)\n", row.Username, FormatPlaytime(int(row.Seconds)), row.Sessions)
		}
		n.Fields = append(n.Fields, domain.NotificationField{
			Name:  "📅 " + yesterday,
			Value: strings.TrimRight(b.String(), "\n"),
		})
	} else {
		n.Fields = append(n.Fields, domain.NotificationField{
			Name:  "📅 " + yesterday,
			Value: "No recorded playtime.",
		})
	}

	if len(top) > 0 {
		var b strings.Builder
		for i, row := range top {
			fmt.Fprintf(&b, "%d. **%s**: %.1fh\n", i+1, row.Username, float64(row.TotalSeconds)/3600)
		}
		n.Fields = append(n.Fields, domain.NotificationField{
			Name:  fmt.Sprintf("🏆 All-time top %d", topPlayersLimit),
			Value: strings.TrimRight(b.String(), "\n"),
		})
	}

	if err := uc.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("push daily report: %w", err)
	}
	uc.logger.Info("daily report sent", "date", yesterday, "players", len(daily))
	return nil
}
