package usecases

import "github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"

// Status discriminates what a flow call produced. The transport layer
// switches on it and never inspects raw errors.
type Status string

const (
	// StatusPrompt asks the user for the next field (Step says which).
	StatusPrompt Status = "prompt"
	// StatusError is a recoverable or terminal failure, see Code.
	StatusError Status = "error"
	// StatusCompleted ends a flow successfully.
	StatusCompleted Status = "completed"
	// StatusCancelled ends a flow with nothing persisted.
	StatusCancelled Status = "cancelled"
)

// Code keys the user-facing message template for StatusError results.
type Code string

const (
	CodeInvalidNickname Code = "invalid_nickname"
	CodeInvalidPassword Code = "invalid_password"
	CodeInvalidEmail    Code = "invalid_email"
	CodeInvalidAmount   Code = "invalid_amount"
	CodeAccountLimit    Code = "account_limit"
	CodeEmailExists     Code = "email_exists"
	CodeUsernameExists  Code = "username_exists"
	CodeNotFound        Code = "not_found"
	// CodeOwnership must render identically to CodeNotFound; it exists
	// so the audit log can tell the two apart.
	CodeOwnership       Code = "ownership"
	CodePersistence     Code = "persistence"
	CodeFeatureDisabled Code = "feature_disabled"
)

// Terminal reports whether the error ends the active flow (as opposed
// to re-prompting the same step).
func (c Code) Terminal() bool {
	switch c {
	case CodeInvalidNickname, CodeInvalidPassword, CodeInvalidEmail, CodeInvalidAmount:
		return false
	default:
		return true
	}
}

// Result is the discriminated outcome of every wizard / lifecycle call.
type Result struct {
	Status Status
	Step   session.Step // set for StatusPrompt within the wizard

	Code Code // set for StatusError
	// MaxAccounts parameterizes the account-limit message.
	MaxAccounts int

	// Username is set when registration completes.
	Username string
	// Coins is the amount credited when a shop purchase completes;
	// Balance is the account total afterwards.
	Coins   int
	Balance int
	// TempPassword is set when a reset completes.
	TempPassword string
	// NotifyChatID asks the caller to notify that chat out-of-band
	// (admin deletion of a linked account).
	NotifyChatID int64
}

func promptResult(step session.Step) Result {
	return Result{Status: StatusPrompt, Step: step}
}

func errorResult(code Code) Result {
	return Result{Status: StatusError, Code: code}
}

func cancelledResult() Result {
	return Result{Status: StatusCancelled}
}
