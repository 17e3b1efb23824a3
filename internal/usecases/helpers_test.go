package usecases

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/config"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/validation"
)

type fixture struct {
	repo      *repository.MemoryRepository
	sessions  *session.MemoryStore
	runtime   *config.Runtime
	wizard    *RegistrationWizard
	lifecycle *CredentialLifecycleManager
	shop      *CurrencyShop
}

// newFixture wires the flows against in-memory storage. configJSON
// overrides the runtime config; empty keeps the defaults.
func newFixture(t *testing.T, configJSON string) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	if configJSON != "" {
		require.NoError(t, os.WriteFile(path, []byte(configJSON), 0o644))
	}
	runtime := config.LoadRuntime(path)

	repo := repository.NewMemoryRepository(runtime.MaxAccountsPerUser)
	sessions := session.NewMemoryStore(time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := validation.StrictPolicy{AllowAnyProvider: true}

	return &fixture{
		repo:      repo,
		sessions:  sessions,
		runtime:   runtime,
		wizard:    NewRegistrationWizard(repo, policy, sessions, runtime, log),
		lifecycle: NewCredentialLifecycleManager(repo, policy, sessions, runtime, log),
		shop:      NewCurrencyShop(repo, sessions, runtime, log),
	}
}

const shopEnabledConfig = `{
  "features": {
    "registration": true,
    "password_reset": true,
    "account_management": true,
    "admin_delete_account": true,
    "currency_shop": true
  },
  "settings": {"max_accounts_per_user": 3},
  "currency_shop": {"enabled": true, "balance_check": true, "purchase": true,
    "custom_min": 1, "custom_max": 10000}
}`
