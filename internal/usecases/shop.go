package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/config"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/entities"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
)

// CoinPackages are the fixed amounts offered as one-tap buttons. Any
// other amount goes through the custom-amount flow.
var CoinPackages = []int{100, 200, 300, 400, 500}

// CurrencyShop credits coins to a game account. There is no payment
// integration; crediting is immediate, which is why the whole feature
// ships disabled until an operator turns it on.
type CurrencyShop struct {
	repo     repository.AccountRepository
	sessions session.Store
	runtime  *config.Runtime
	log      *slog.Logger
}

func NewCurrencyShop(repo repository.AccountRepository, sessions session.Store,
	runtime *config.Runtime, log *slog.Logger) *CurrencyShop {
	return &CurrencyShop{repo: repo, sessions: sessions, runtime: runtime, log: log}
}

func (s *CurrencyShop) enabled() bool {
	return s.runtime.Features().CurrencyShop && s.runtime.Shop().Enabled
}

// Balances lists the user's accounts with their coin balances.
func (s *CurrencyShop) Balances(ctx context.Context, chatID int64) ([]entities.AccountInfo, error) {
	if !s.enabled() || !s.runtime.Shop().BalanceCheck {
		return nil, nil
	}
	return s.repo.AccountsForUser(ctx, chatID)
}

// PurchasePackage credits one of the fixed packages to the account
// recorded by StartPurchase. The email must belong to the purchasing
// chat.
func (s *CurrencyShop) PurchasePackage(ctx context.Context, chatID int64, email string, amount int) Result {
	if !s.enabled() || !s.runtime.Shop().Purchase {
		return errorResult(CodeFeatureDisabled)
	}
	if !isKnownPackage(amount) {
		return errorResult(CodeInvalidAmount)
	}
	return s.credit(ctx, chatID, email, amount)
}

// StartPurchase records which account the purchase targets. Package
// buttons and the custom-amount prompt both read it back from the
// session.
func (s *CurrencyShop) StartPurchase(ctx context.Context, chatID int64, email string) Result {
	if !s.enabled() || !s.runtime.Shop().Purchase {
		return errorResult(CodeFeatureDisabled)
	}
	owned, err := s.ownsEmail(ctx, chatID, email)
	if err != nil {
		return s.persistenceFailure(chatID, "ownership check", err)
	}
	if !owned {
		s.log.Warn("shop purchase for unlinked email", "chat_id", chatID)
		return errorResult(CodeOwnership)
	}

	sess, err := s.sessions.Get(ctx, chatID)
	if err != nil {
		return s.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil {
		sess = &session.Session{ChatID: chatID}
	}
	resetFlow(sess)
	sess.Flow = session.FlowBuyCoins
	sess.Email = strings.ToUpper(strings.TrimSpace(email))
	if err := s.sessions.Put(ctx, sess); err != nil {
		return s.persistenceFailure(chatID, "session save", err)
	}
	return Result{Status: StatusPrompt}
}

// SubmitCustomAmount parses and bounds-checks the typed amount, then
// credits it.
func (s *CurrencyShop) SubmitCustomAmount(ctx context.Context, chatID int64, text string) Result {
	if !s.enabled() || !s.runtime.Shop().Purchase {
		return errorResult(CodeFeatureDisabled)
	}
	sess, err := s.sessions.Get(ctx, chatID)
	if err != nil {
		return s.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil || sess.Flow != session.FlowBuyCoins || sess.Email == "" {
		return cancelledResult()
	}

	raw := strings.TrimSpace(text)
	if isCancelKeyword(raw) {
		s.terminate(ctx, sess)
		return cancelledResult()
	}

	amount, err := strconv.Atoi(raw)
	if err != nil {
		return errorResult(CodeInvalidAmount)
	}
	shop := s.runtime.Shop()
	if amount < shop.CustomMin || amount > shop.CustomMax {
		return errorResult(CodeInvalidAmount)
	}

	email := sess.Email
	s.terminate(ctx, sess)
	return s.credit(ctx, chatID, email, amount)
}

func (s *CurrencyShop) credit(ctx context.Context, chatID int64, email string, amount int) Result {
	owned, err := s.ownsEmail(ctx, chatID, email)
	if err != nil {
		return s.persistenceFailure(chatID, "ownership check", err)
	}
	if !owned {
		s.log.Warn("shop credit for unlinked email", "chat_id", chatID)
		return errorResult(CodeOwnership)
	}

	balance, err := s.repo.AddCoins(ctx, email, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorResult(CodeNotFound)
		}
		s.log.Error("coin credit failed", "chat_id", chatID, "err", err)
		return errorResult(CodePersistence)
	}

	s.log.Info("coins credited", "chat_id", chatID, "amount", amount, "balance", balance)
	return Result{Status: StatusCompleted, Coins: amount, Balance: balance}
}

func (s *CurrencyShop) ownsEmail(ctx context.Context, chatID int64, email string) (bool, error) {
	accounts, err := s.repo.AccountsForUser(ctx, chatID)
	if err != nil {
		return false, err
	}
	mu := strings.ToUpper(strings.TrimSpace(email))
	for _, acc := range accounts {
		if acc.Email == mu {
			return true, nil
		}
	}
	return false, nil
}

func (s *CurrencyShop) terminate(ctx context.Context, sess *session.Session) {
	resetFlow(sess)
	if err := s.sessions.Put(ctx, sess); err != nil {
		s.log.Error("session save after flow end", "chat_id", sess.ChatID, "err", err)
	}
}

func (s *CurrencyShop) persistenceFailure(chatID int64, op string, err error) Result {
	s.log.Error("shop persistence failure", "chat_id", chatID, "op", op, "err", err)
	return errorResult(CodePersistence)
}

func isKnownPackage(amount int) bool {
	for _, p := range CoinPackages {
		if p == amount {
			return true
		}
	}
	return false
}
