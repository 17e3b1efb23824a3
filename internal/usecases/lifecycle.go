package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/config"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/entities"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/validation"
)

// CredentialLifecycleManager orchestrates the non-registration account
// operations: password reset, password change and deletion. Ownership
// is enforced for user-initiated calls and skipped for admin ones; an
// ownership failure renders like "not found" but is logged for audit.
type CredentialLifecycleManager struct {
	repo     repository.AccountRepository
	policy   validation.Policy
	sessions session.Store
	runtime  *config.Runtime
	log      *slog.Logger
}

func NewCredentialLifecycleManager(repo repository.AccountRepository, policy validation.Policy,
	sessions session.Store, runtime *config.Runtime, log *slog.Logger) *CredentialLifecycleManager {
	return &CredentialLifecycleManager{repo: repo, policy: policy, sessions: sessions, runtime: runtime, log: log}
}

// Accounts lists the accounts linked to a chat for the account browser.
func (m *CredentialLifecycleManager) Accounts(ctx context.Context, chatID int64) ([]entities.AccountInfo, error) {
	if !m.runtime.Features().AccountManagement {
		return nil, nil
	}
	return m.repo.AccountsForUser(ctx, chatID)
}

// RequestReset opens the reset flow; the email arrives next message.
func (m *CredentialLifecycleManager) RequestReset(ctx context.Context, chatID int64) Result {
	if !m.runtime.Features().PasswordReset {
		return errorResult(CodeFeatureDisabled)
	}
	if res, ok := m.openFlow(ctx, chatID, session.FlowReset, ""); !ok {
		return res
	}
	return Result{Status: StatusPrompt}
}

// SubmitResetEmail validates the email, enforces ownership and issues a
// temporary password. Validation and ownership failures re-prompt; a
// missing credential ends the flow with "not found".
func (m *CredentialLifecycleManager) SubmitResetEmail(ctx context.Context, chatID int64, text string) Result {
	if !m.runtime.Features().PasswordReset {
		return errorResult(CodeFeatureDisabled)
	}
	sess, err := m.sessions.Get(ctx, chatID)
	if err != nil {
		return m.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil || sess.Flow != session.FlowReset {
		return cancelledResult()
	}

	email := strings.TrimSpace(text)
	if isCancelKeyword(email) {
		return m.Cancel(ctx, chatID)
	}
	if email == "" {
		return errorResult(CodeInvalidEmail)
	}
	if err := m.policy.ValidateEmail(email); err != nil {
		return errorResult(CodeInvalidEmail)
	}

	owned, err := m.ownsEmail(ctx, chatID, email)
	if err != nil {
		return m.persistenceFailure(chatID, "ownership check", err)
	}
	if !owned {
		m.log.Warn("reset against unlinked email", "chat_id", chatID)
		return errorResult(CodeOwnership)
	}

	tmp, err := m.repo.ResetPassword(ctx, email)
	if err != nil {
		m.terminate(ctx, sess)
		if errors.Is(err, repository.ErrNotFound) {
			return errorResult(CodeNotFound)
		}
		m.log.Error("password reset failed", "chat_id", chatID, "err", err)
		return errorResult(CodePersistence)
	}

	m.terminate(ctx, sess)
	m.log.Info("password reset issued", "chat_id", chatID)
	return Result{Status: StatusCompleted, TempPassword: tmp}
}

// StartChangePassword opens the change flow for one of the user's own
// accounts, selected in the account browser.
func (m *CredentialLifecycleManager) StartChangePassword(ctx context.Context, chatID int64, email string) Result {
	if !m.runtime.Features().AccountManagement {
		return errorResult(CodeFeatureDisabled)
	}
	owned, err := m.ownsEmail(ctx, chatID, email)
	if err != nil {
		return m.persistenceFailure(chatID, "ownership check", err)
	}
	if !owned {
		m.log.Warn("password change against unlinked email", "chat_id", chatID)
		return errorResult(CodeOwnership)
	}
	if res, ok := m.openFlow(ctx, chatID, session.FlowChangePassword, strings.ToUpper(email)); !ok {
		return res
	}
	return Result{Status: StatusPrompt}
}

// SubmitNewPassword validates and applies the new password for the
// email selected by StartChangePassword.
func (m *CredentialLifecycleManager) SubmitNewPassword(ctx context.Context, chatID int64, text string) Result {
	if !m.runtime.Features().AccountManagement {
		return errorResult(CodeFeatureDisabled)
	}
	sess, err := m.sessions.Get(ctx, chatID)
	if err != nil {
		return m.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil || sess.Flow != session.FlowChangePassword || sess.Email == "" {
		return cancelledResult()
	}

	pwd := strings.TrimSpace(text)
	if isCancelKeyword(pwd) {
		return m.Cancel(ctx, chatID)
	}
	if pwd == "" {
		return errorResult(CodeInvalidPassword)
	}
	// Weakness is advisory here; only registration runs the confirm step.
	if _, err := m.policy.ValidatePassword(pwd); err != nil {
		return errorResult(CodeInvalidPassword)
	}

	if err := m.repo.ChangePassword(ctx, sess.Email, pwd); err != nil {
		m.terminate(ctx, sess)
		if errors.Is(err, repository.ErrNotFound) {
			return errorResult(CodeNotFound)
		}
		m.log.Error("password change failed", "chat_id", chatID, "err", err)
		return errorResult(CodePersistence)
	}

	m.terminate(ctx, sess)
	m.log.Info("password changed", "chat_id", chatID)
	return Result{Status: StatusCompleted}
}

// RequestDeletion records which account is about to be deleted and asks
// for an explicit confirm. Nothing is deleted yet.
func (m *CredentialLifecycleManager) RequestDeletion(ctx context.Context, chatID int64, email string) Result {
	if !m.runtime.Features().AccountManagement {
		return errorResult(CodeFeatureDisabled)
	}
	owned, err := m.ownsEmail(ctx, chatID, email)
	if err != nil {
		return m.persistenceFailure(chatID, "ownership check", err)
	}
	if !owned {
		m.log.Warn("deletion requested for unlinked email", "chat_id", chatID)
		return errorResult(CodeOwnership)
	}
	if res, ok := m.openFlow(ctx, chatID, session.FlowDeleteConfirm, strings.ToUpper(email)); !ok {
		return res
	}
	return Result{Status: StatusPrompt}
}

// ConfirmDeletion performs the cascade for the account recorded by
// RequestDeletion.
func (m *CredentialLifecycleManager) ConfirmDeletion(ctx context.Context, chatID int64) Result {
	if !m.runtime.Features().AccountManagement {
		return errorResult(CodeFeatureDisabled)
	}
	sess, err := m.sessions.Get(ctx, chatID)
	if err != nil {
		return m.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil || sess.Flow != session.FlowDeleteConfirm || sess.Email == "" {
		return cancelledResult()
	}

	email := sess.Email
	m.terminate(ctx, sess)

	if err := m.repo.DeleteAccountForUser(ctx, chatID, email); err != nil {
		if errors.Is(err, repository.ErrOwnership) {
			m.log.Warn("deletion blocked by ownership check", "chat_id", chatID)
			return errorResult(CodeOwnership)
		}
		m.log.Error("account deletion failed", "chat_id", chatID, "err", err)
		return errorResult(CodePersistence)
	}

	m.log.Info("account deleted by owner", "chat_id", chatID)
	return Result{Status: StatusCompleted}
}

// AdminDeleteAccount cascades a deletion without an ownership check and
// reports which chat (if any) was linked so it can be notified.
func (m *CredentialLifecycleManager) AdminDeleteAccount(ctx context.Context, email string) Result {
	if !m.runtime.Features().AdminDeleteAccount {
		return errorResult(CodeFeatureDisabled)
	}
	if err := m.policy.ValidateEmail(strings.TrimSpace(email)); err != nil {
		return errorResult(CodeInvalidEmail)
	}

	linked, err := m.repo.DeleteAccountAsAdmin(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorResult(CodeNotFound)
		}
		m.log.Error("admin deletion failed", "err", err)
		return errorResult(CodePersistence)
	}

	m.log.Info("account deleted by admin", "notified_chat", linked)
	return Result{Status: StatusCompleted, NotifyChatID: linked}
}

// Cancel ends whatever lifecycle flow is active. Idempotent.
func (m *CredentialLifecycleManager) Cancel(ctx context.Context, chatID int64) Result {
	sess, err := m.sessions.Get(ctx, chatID)
	if err != nil {
		return m.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil {
		return cancelledResult()
	}
	m.terminate(ctx, sess)
	return cancelledResult()
}

func (m *CredentialLifecycleManager) ownsEmail(ctx context.Context, chatID int64, email string) (bool, error) {
	accounts, err := m.repo.AccountsForUser(ctx, chatID)
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

// openFlow resets the session into the given flow. The bool is false
// when the caller should return the Result instead.
func (m *CredentialLifecycleManager) openFlow(ctx context.Context, chatID int64, flow session.Flow, email string) (Result, bool) {
	sess, err := m.sessions.Get(ctx, chatID)
	if err != nil {
		return m.persistenceFailure(chatID, "session load", err), false
	}
	if sess == nil {
		sess = &session.Session{ChatID: chatID}
	}
	resetFlow(sess)
	sess.Flow = flow
	sess.Email = email
	if err := m.sessions.Put(ctx, sess); err != nil {
		return m.persistenceFailure(chatID, "session save", err), false
	}
	return Result{}, true
}

func (m *CredentialLifecycleManager) terminate(ctx context.Context, sess *session.Session) {
	resetFlow(sess)
	if err := m.sessions.Put(ctx, sess); err != nil {
		m.log.Error("session save after flow end", "chat_id", sess.ChatID, "err", err)
	}
}

func (m *CredentialLifecycleManager) persistenceFailure(chatID int64, op string, err error) Result {
	m.log.Error("lifecycle persistence failure", "chat_id", chatID, "op", op, "err", err)
	return errorResult(CodePersistence)
}
