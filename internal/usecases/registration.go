package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/config"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/validation"
)

// Reserved menu keywords. Typing one mid-flow cancels instead of being
// validated as field content.
const (
	KeywordCancel   = "Отмена"
	KeywordMainMenu = "На главную"
)

func isCancelKeyword(text string) bool {
	return text == KeywordCancel || text == KeywordMainMenu || text == "/cancel"
}

// RegistrationWizard drives the three-step signup conversation.
// Nothing touches the repository until the final email step, so cancel
// never has to abort an in-flight write.
type RegistrationWizard struct {
	repo     repository.AccountRepository
	policy   validation.Policy
	sessions session.Store
	runtime  *config.Runtime
	log      *slog.Logger
}

func NewRegistrationWizard(repo repository.AccountRepository, policy validation.Policy,
	sessions session.Store, runtime *config.Runtime, log *slog.Logger) *RegistrationWizard {
	return &RegistrationWizard{repo: repo, policy: policy, sessions: sessions, runtime: runtime, log: log}
}

// Start opens a fresh wizard session, discarding any flow in progress.
func (w *RegistrationWizard) Start(ctx context.Context, chatID int64) Result {
	if !w.runtime.Features().Registration {
		return errorResult(CodeFeatureDisabled)
	}

	sess, err := w.sessions.Get(ctx, chatID)
	if err != nil {
		return w.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil {
		sess = &session.Session{ChatID: chatID}
	}
	resetFlow(sess)
	sess.Flow = session.FlowRegister
	sess.Step = session.StepNickname

	if err := w.sessions.Put(ctx, sess); err != nil {
		return w.persistenceFailure(chatID, "session save", err)
	}
	w.log.Info("registration started", "chat_id", chatID)
	return promptResult(session.StepNickname)
}

// SubmitNickname validates and stores the nickname. The session is only
// mutated after validation passes.
func (w *RegistrationWizard) SubmitNickname(ctx context.Context, chatID int64, text string) Result {
	sess, res := w.activeSession(ctx, chatID, session.StepNickname)
	if sess == nil {
		return res
	}

	nick := strings.TrimSpace(text)
	if isCancelKeyword(nick) {
		return w.Cancel(ctx, chatID)
	}
	if nick == "" {
		return errorResult(CodeInvalidNickname)
	}
	if err := w.policy.ValidateNickname(nick); err != nil {
		return errorResult(CodeInvalidNickname)
	}

	sess.Nickname = nick
	sess.Step = session.StepPassword
	if err := w.sessions.Put(ctx, sess); err != nil {
		return w.persistenceFailure(chatID, "session save", err)
	}
	return promptResult(session.StepPassword)
}

// SubmitPassword validates the password. A valid-but-weak password
// moves to the confirm sub-step instead of advancing.
func (w *RegistrationWizard) SubmitPassword(ctx context.Context, chatID int64, text string) Result {
	sess, res := w.activeSession(ctx, chatID, session.StepPassword)
	if sess == nil {
		return res
	}

	pwd := strings.TrimSpace(text)
	if isCancelKeyword(pwd) {
		return w.Cancel(ctx, chatID)
	}
	if pwd == "" {
		return errorResult(CodeInvalidPassword)
	}
	weak, err := w.policy.ValidatePassword(pwd)
	if err != nil {
		return errorResult(CodeInvalidPassword)
	}

	if weak {
		sess.PendingPassword = pwd
		sess.Step = session.StepPasswordConfirm
		if err := w.sessions.Put(ctx, sess); err != nil {
			return w.persistenceFailure(chatID, "session save", err)
		}
		return promptResult(session.StepPasswordConfirm)
	}

	sess.Password = pwd
	sess.PendingPassword = ""
	sess.Step = session.StepEmail
	if err := w.sessions.Put(ctx, sess); err != nil {
		return w.persistenceFailure(chatID, "session save", err)
	}
	return promptResult(session.StepEmail)
}

// ConfirmWeakPassword resolves the confirm sub-step: accept advances to
// the email step, reject returns to the password step for a new value.
func (w *RegistrationWizard) ConfirmWeakPassword(ctx context.Context, chatID int64, accept bool) Result {
	sess, res := w.activeSession(ctx, chatID, session.StepPasswordConfirm)
	if sess == nil {
		return res
	}

	if accept {
		sess.Password = sess.PendingPassword
		sess.PendingPassword = ""
		sess.Step = session.StepEmail
	} else {
		sess.PendingPassword = ""
		sess.Step = session.StepPassword
	}
	if err := w.sessions.Put(ctx, sess); err != nil {
		return w.persistenceFailure(chatID, "session save", err)
	}
	return promptResult(sess.Step)
}

// SubmitEmail runs the final checks and commits the whole registration
// bundle. Any terminal failure clears the flow; no partial state stays
// visible either way.
func (w *RegistrationWizard) SubmitEmail(ctx context.Context, chatID int64, text string) Result {
	sess, res := w.activeSession(ctx, chatID, session.StepEmail)
	if sess == nil {
		return res
	}

	email := strings.TrimSpace(text)
	if isCancelKeyword(email) {
		return w.Cancel(ctx, chatID)
	}
	if email == "" {
		return errorResult(CodeInvalidEmail)
	}
	if err := w.policy.ValidateEmail(email); err != nil {
		return errorResult(CodeInvalidEmail)
	}

	maxAccounts := w.runtime.MaxAccountsPerUser()
	linked, err := w.repo.CountLinkedAccounts(ctx, chatID)
	if err != nil {
		return w.persistenceFailure(chatID, "count linked accounts", err)
	}
	if linked >= maxAccounts {
		w.terminate(ctx, sess)
		w.log.Warn("registration over account limit", "chat_id", chatID, "limit", maxAccounts)
		return Result{Status: StatusError, Code: CodeAccountLimit, MaxAccounts: maxAccounts}
	}

	if exists, err := w.repo.EmailExists(ctx, email); err != nil {
		return w.persistenceFailure(chatID, "email pre-check", err)
	} else if exists {
		w.terminate(ctx, sess)
		w.log.Warn("registration with taken email", "chat_id", chatID)
		return errorResult(CodeEmailExists)
	}

	username, err := w.repo.CreateRegistrationBundle(ctx, sess.Nickname, sess.Password, email, chatID)
	if err != nil {
		w.terminate(ctx, sess)
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			// Lost the pre-check race; same outcome as the pre-check.
			w.log.Warn("registration email race lost", "chat_id", chatID)
			return errorResult(CodeEmailExists)
		case errors.Is(err, repository.ErrUsernameExists):
			return errorResult(CodeUsernameExists)
		case errors.Is(err, repository.ErrAccountLimit):
			return Result{Status: StatusError, Code: CodeAccountLimit, MaxAccounts: maxAccounts}
		default:
			w.log.Error("registration commit failed", "chat_id", chatID, "err", err)
			return errorResult(CodePersistence)
		}
	}

	w.terminate(ctx, sess)
	w.log.Info("registration completed", "chat_id", chatID, "username", username)
	return Result{Status: StatusCompleted, Username: username}
}

// Back returns to the previous step; the value entered there must be
// re-entered.
func (w *RegistrationWizard) Back(ctx context.Context, chatID int64) Result {
	sess, err := w.sessions.Get(ctx, chatID)
	if err != nil {
		return w.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil || sess.Flow != session.FlowRegister {
		return cancelledResult()
	}

	switch sess.Step {
	case session.StepPassword, session.StepPasswordConfirm:
		sess.Nickname = ""
		sess.PendingPassword = ""
		sess.Step = session.StepNickname
	case session.StepEmail:
		sess.Password = ""
		sess.Step = session.StepPassword
	default:
		// Back from the first step leaves the wizard entirely.
		return w.Cancel(ctx, chatID)
	}

	if err := w.sessions.Put(ctx, sess); err != nil {
		return w.persistenceFailure(chatID, "session save", err)
	}
	return promptResult(sess.Step)
}

// Cancel discards everything collected. Safe to call any number of
// times, with or without an active flow.
func (w *RegistrationWizard) Cancel(ctx context.Context, chatID int64) Result {
	sess, err := w.sessions.Get(ctx, chatID)
	if err != nil {
		return w.persistenceFailure(chatID, "session load", err)
	}
	if sess == nil {
		return cancelledResult()
	}
	w.terminate(ctx, sess)
	return cancelledResult()
}

// activeSession loads the session and checks the wizard is at the
// expected step. A nil session return means the accompanying Result
// should be handed back as-is.
func (w *RegistrationWizard) activeSession(ctx context.Context, chatID int64, step session.Step) (*session.Session, Result) {
	if !w.runtime.Features().Registration {
		return nil, errorResult(CodeFeatureDisabled)
	}
	sess, err := w.sessions.Get(ctx, chatID)
	if err != nil {
		return nil, w.persistenceFailure(chatID, "session load", err)
	}
	// Expired or foreign-flow sessions behave like a cancelled wizard.
	if sess == nil || sess.Flow != session.FlowRegister || sess.Step != step {
		return nil, cancelledResult()
	}
	return sess, Result{}
}

func (w *RegistrationWizard) terminate(ctx context.Context, sess *session.Session) {
	resetFlow(sess)
	if err := w.sessions.Put(ctx, sess); err != nil {
		w.log.Error("session save after flow end", "chat_id", sess.ChatID, "err", err)
	}
}

func (w *RegistrationWizard) persistenceFailure(chatID int64, op string, err error) Result {
	w.log.Error("wizard persistence failure", "chat_id", chatID, "op", op, "err", err)
	return errorResult(CodePersistence)
}

// resetFlow clears flow state but keeps the rendered message ids so the
// menu can still be edited in place.
func resetFlow(sess *session.Session) {
	sess.Flow = session.FlowNone
	sess.Step = ""
	sess.Nickname = ""
	sess.Password = ""
	sess.PendingPassword = ""
	sess.Email = ""
}
