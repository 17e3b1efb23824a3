package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopDisabledByDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	res := f.shop.PurchasePackage(ctx, 100, "hero@gmail.com", 100)
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeFeatureDisabled, res.Code)

	accounts, err := f.shop.Balances(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, accounts)
}

func TestShopPackagePurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, shopEnabledConfig)
	const chatID = int64(100)
	registerAccount(t, f, "hero@gmail.com", chatID)

	res := f.shop.StartPurchase(ctx, chatID, "hero@gmail.com")
	require.Equal(t, StatusPrompt, res.Status)

	res = f.shop.PurchasePackage(ctx, chatID, "hero@gmail.com", 300)
	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 300, res.Coins)
	assert.Equal(t, 300, res.Balance)

	// A second purchase accumulates.
	res = f.shop.PurchasePackage(ctx, chatID, "hero@gmail.com", 200)
	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 500, res.Balance)
}

func TestShopRejectsUnknownPackage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, shopEnabledConfig)
	const chatID = int64(100)
	registerAccount(t, f, "hero@gmail.com", chatID)

	res := f.shop.PurchasePackage(ctx, chatID, "hero@gmail.com", 250)
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeInvalidAmount, res.Code)
}

func TestShopOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, shopEnabledConfig)
	registerAccount(t, f, "victim@gmail.com", 999)

	res := f.shop.PurchasePackage(ctx, 100, "victim@gmail.com", 100)
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeOwnership, res.Code)

	accounts, err := f.repo.AccountsForUser(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, accounts[0].Coins)
}

func TestShopCustomAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, shopEnabledConfig)
	const chatID = int64(100)
	registerAccount(t, f, "hero@gmail.com", chatID)

	res := f.shop.StartPurchase(ctx, chatID, "hero@gmail.com")
	require.Equal(t, StatusPrompt, res.Status)

	// Out of bounds and non-numeric re-prompt.
	res = f.shop.SubmitCustomAmount(ctx, chatID, "0")
	assert.Equal(t, CodeInvalidAmount, res.Code)
	res = f.shop.SubmitCustomAmount(ctx, chatID, "10001")
	assert.Equal(t, CodeInvalidAmount, res.Code)
	res = f.shop.SubmitCustomAmount(ctx, chatID, "many")
	assert.Equal(t, CodeInvalidAmount, res.Code)

	res = f.shop.SubmitCustomAmount(ctx, chatID, "1234")
	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 1234, res.Balance)
}

func TestShopCustomAmountCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, shopEnabledConfig)
	const chatID = int64(100)
	registerAccount(t, f, "hero@gmail.com", chatID)

	f.shop.StartPurchase(ctx, chatID, "hero@gmail.com")
	res := f.shop.SubmitCustomAmount(ctx, chatID, "Отмена")
	assert.Equal(t, StatusCancelled, res.Status)

	// The flow is gone; a later amount has no target account.
	res = f.shop.SubmitCustomAmount(ctx, chatID, "500")
	assert.Equal(t, StatusCancelled, res.Status)
}
