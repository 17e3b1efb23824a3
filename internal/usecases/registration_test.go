package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
)

func TestRegistrationHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	const chatID = int64(100)

	res := f.wizard.Start(ctx, chatID)
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepNickname, res.Step)

	res = f.wizard.SubmitNickname(ctx, chatID, "Hero123")
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepPassword, res.Step)

	res = f.wizard.SubmitPassword(ctx, chatID, "Str0ngPass!")
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepEmail, res.Step)

	res = f.wizard.SubmitEmail(ctx, chatID, "hero@gmail.com")
	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "1#1", res.Username)

	// The bundle is visible and the flow is closed.
	accounts, err := f.repo.AccountsForUser(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	sess, err := f.sessions.Get(ctx, chatID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, session.FlowNone, sess.Flow)
	assert.Empty(t, sess.Password, "collected secrets are cleared")
}

func TestRegistrationInvalidInputReprompts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	const chatID = int64(100)

	f.wizard.Start(ctx, chatID)

	res := f.wizard.SubmitNickname(ctx, chatID, "Гарри")
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeInvalidNickname, res.Code)
	assert.False(t, res.Code.Terminal(), "validation errors re-prompt")

	// The step did not advance; a valid value still works.
	res = f.wizard.SubmitNickname(ctx, chatID, "Harry")
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepPassword, res.Step)
}

func TestRegistrationWeakPasswordConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	const chatID = int64(100)

	f.wizard.Start(ctx, chatID)
	f.wizard.SubmitNickname(ctx, chatID, "Hero123")

	// Two character classes: valid but weak, so the wizard asks first.
	res := f.wizard.SubmitPassword(ctx, chatID, "weakpassword1")
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepPasswordConfirm, res.Step)

	// Rejecting returns to the password step.
	res = f.wizard.ConfirmWeakPassword(ctx, chatID, false)
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepPassword, res.Step)

	// Accepting moves on to email.
	f.wizard.SubmitPassword(ctx, chatID, "weakpassword1")
	res = f.wizard.ConfirmWeakPassword(ctx, chatID, true)
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepEmail, res.Step)

	res = f.wizard.SubmitEmail(ctx, chatID, "hero@gmail.com")
	assert.Equal(t, StatusCompleted, res.Status)
}

func TestRegistrationDuplicateEmailIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	_, err := f.repo.CreateRegistrationBundle(ctx, "Other", "Secret1!", "taken@gmail.com", 999)
	require.NoError(t, err)

	const chatID = int64(100)
	f.wizard.Start(ctx, chatID)
	f.wizard.SubmitNickname(ctx, chatID, "Hero123")
	f.wizard.SubmitPassword(ctx, chatID, "Str0ngPass!")

	res := f.wizard.SubmitEmail(ctx, chatID, "TAKEN@gmail.com")
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeEmailExists, res.Code)
	assert.True(t, res.Code.Terminal())

	// The flow is over; another email submission finds no wizard.
	res = f.wizard.SubmitEmail(ctx, chatID, "other@gmail.com")
	assert.Equal(t, StatusCancelled, res.Status)
}

func TestRegistrationAccountLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"settings": {"max_accounts_per_user": 1}}`)
	const chatID = int64(100)

	_, err := f.repo.CreateRegistrationBundle(ctx, "Hero", "Secret1!", "first@gmail.com", chatID)
	require.NoError(t, err)

	f.wizard.Start(ctx, chatID)
	f.wizard.SubmitNickname(ctx, chatID, "Hero123")
	f.wizard.SubmitPassword(ctx, chatID, "Str0ngPass!")

	res := f.wizard.SubmitEmail(ctx, chatID, "second@gmail.com")
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeAccountLimit, res.Code)
	assert.Equal(t, 1, res.MaxAccounts)
}

func TestRegistrationCancelKeywordAndIdempotence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	const chatID = int64(100)

	f.wizard.Start(ctx, chatID)
	f.wizard.SubmitNickname(ctx, chatID, "Hero123")

	// The reserved keyword is treated as cancel, not as a password.
	res := f.wizard.SubmitPassword(ctx, chatID, "Отмена")
	assert.Equal(t, StatusCancelled, res.Status)

	// Cancelling again, with no flow active, is harmless.
	assert.Equal(t, StatusCancelled, f.wizard.Cancel(ctx, chatID).Status)
	assert.Equal(t, StatusCancelled, f.wizard.Cancel(ctx, chatID).Status)

	// Nothing was persisted.
	n, err := f.repo.CountLinkedAccounts(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistrationBackDiscardsValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	const chatID = int64(100)

	f.wizard.Start(ctx, chatID)
	f.wizard.SubmitNickname(ctx, chatID, "Hero123")
	f.wizard.SubmitPassword(ctx, chatID, "Str0ngPass!")

	// Back from email re-opens the password step.
	res := f.wizard.Back(ctx, chatID)
	require.Equal(t, StatusPrompt, res.Status)
	assert.Equal(t, session.StepPassword, res.Step)

	sess, err := f.sessions.Get(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, sess.Password, "the discarded value must be re-entered")

	// Back from the first step leaves the wizard.
	f.wizard.Back(ctx, chatID) // to nickname
	res = f.wizard.Back(ctx, chatID)
	assert.Equal(t, StatusCancelled, res.Status)
}

func TestRegistrationFeatureDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, `{"features": {"registration": false}}`)

	res := f.wizard.Start(ctx, 100)
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeFeatureDisabled, res.Code)
}
