package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
)

// StatsService backs the admin "check DB" button and the ops API stats
// endpoint. It also measures the round trip so the admin panel can show
// whether the database is responsive.
type StatsService struct {
	repo repository.AccountRepository
	log  *slog.Logger
}

func NewStatsService(repo repository.AccountRepository, log *slog.Logger) *StatsService {
	return &StatsService{repo: repo, log: log}
}

// Report carries row counts and the query latency.
type Report struct {
	Credentials  int           `json:"credentials"`
	GameAccounts int           `json:"game_accounts"`
	Links        int           `json:"links"`
	Latency      time.Duration `json:"-"`
	LatencyMS    int64         `json:"latency_ms"`
}

func (s *StatsService) Check(ctx context.Context) (*Report, error) {
	start := time.Now()
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		s.log.Error("stats query failed", "err", err)
		return nil, err
	}
	elapsed := time.Since(start)
	return &Report{
		Credentials:  counts.Credentials,
		GameAccounts: counts.GameAccounts,
		Links:        counts.Links,
		Latency:      elapsed,
		LatencyMS:    elapsed.Milliseconds(),
	}, nil
}

// Recipients lists every linked chat for an admin broadcast.
func (s *StatsService) Recipients(ctx context.Context) ([]int64, error) {
	return s.repo.ListLinkedTelegramIDs(ctx)
}

// Lookup resolves an email to its username and linked chat for the ops
// API.
func (s *StatsService) Lookup(ctx context.Context, email string) (*repository.AdminLookup, error) {
	return s.repo.AccountByEmail(ctx, email)
}
