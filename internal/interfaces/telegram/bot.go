// Package telegram is the transport layer: it turns updates into
// usecase calls and usecase results into rendered menus. No business
// rules live here.
package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/config"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/entities"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/infrastructure"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/usecases"
)

// Deps collects everything the bot needs; main wires it once.
type Deps struct {
	Wizard    *usecases.RegistrationWizard
	Lifecycle *usecases.CredentialLifecycleManager
	Shop      *usecases.CurrencyShop
	Stats     *usecases.StatsService
	Sessions  session.Store
	Runtime   *config.Runtime
	Limiter   *infrastructure.UserRateLimiter
	News      *infrastructure.FileCache
	Info      *infrastructure.FileCache
	AdminID   int64
	ServerURL string
	Log       *slog.Logger
}

type Bot struct {
	api *tgbotapi.BotAPI
	Deps
}

func NewBot(api *tgbotapi.BotAPI, deps Deps) *Bot {
	return &Bot{api: api, Deps: deps}
}

// Run polls for updates until the context is cancelled. Each update is
// handled inline; per-user rate limiting keeps one chat from starving
// the loop.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.Log.Info("bot polling started", "username", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.Log.Info("bot polling stopped")
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		// Ack first so the client spinner stops even when throttled.
		_, _ = b.api.Request(tgbotapi.NewCallback(q.ID, ""))
		if !b.Limiter.Allow(q.From.ID) {
			return
		}
		b.handleCallback(ctx, q)
	case update.Message != nil:
		m := update.Message
		if m.Chat == nil || !m.Chat.IsPrivate() {
			return
		}
		if !b.Limiter.Allow(m.Chat.ID) {
			return
		}
		if m.IsCommand() {
			b.handleCommand(ctx, m)
		} else {
			b.handleText(ctx, m)
		}
	}
}

// --- commands ---

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	defer b.deleteMessage(chatID, m.MessageID)

	switch m.Command() {
	case "start":
		b.cancelAny(ctx, chatID)
		b.render(ctx, chatID, msgStart, kbMain(b.Runtime.Features()))
	case "version":
		b.render(ctx, chatID, msgVersion, kbBack())
	case "cancel":
		b.cancelAny(ctx, chatID)
		b.render(ctx, chatID, msgCancelled, kbMain(b.Runtime.Features()))
	case "admin":
		b.showAdminPanel(ctx, chatID, m.From.ID)
	default:
		b.render(ctx, chatID, msgUseMenu, kbMain(b.Runtime.Features()))
	}
}

func (b *Bot) showAdminPanel(ctx context.Context, chatID, fromID int64) {
	if !b.Runtime.Features().AdminPanel {
		b.render(ctx, chatID, msgFeatureOff, kbBack())
		return
	}
	if fromID != b.AdminID || b.AdminID == 0 {
		b.render(ctx, chatID, msgNoAccess, kbBack())
		return
	}
	b.cancelAny(ctx, chatID)
	b.render(ctx, chatID, msgAdminPanel, kbAdmin(b.Runtime.Features()))
}

// --- free text, routed by the active flow ---

func (b *Bot) handleText(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	text := m.Text
	// Typed values (passwords included) never stay visible in the chat.
	defer b.deleteMessage(chatID, m.MessageID)

	sess, err := b.Sessions.Get(ctx, chatID)
	if err != nil {
		b.Log.Error("session load", "chat_id", chatID, "err", err)
		return
	}
	if sess == nil {
		b.render(ctx, chatID, msgUseMenu, kbMain(b.Runtime.Features()))
		return
	}

	switch sess.Flow {
	case session.FlowRegister:
		b.handleWizardText(ctx, chatID, sess.Step, text)
	case session.FlowReset:
		res := b.Lifecycle.SubmitResetEmail(ctx, chatID, text)
		b.renderLifecycle(ctx, chatID, res, msgForgotPrompt, renderReset(res.TempPassword))
	case session.FlowChangePassword:
		res := b.Lifecycle.SubmitNewPassword(ctx, chatID, text)
		b.renderLifecycle(ctx, chatID, res, msgChangePrompt, msgChangeDone)
	case session.FlowBuyCoins:
		b.handleCoinsAmount(ctx, chatID, text)
	case session.FlowAdminBroadcast:
		b.runBroadcast(ctx, chatID, m.From.ID, text)
	case session.FlowAdminDelete:
		b.runAdminDelete(ctx, chatID, m.From.ID, text)
	default:
		b.render(ctx, chatID, msgUseMenu, kbMain(b.Runtime.Features()))
	}
}

func (b *Bot) handleWizardText(ctx context.Context, chatID int64, step session.Step, text string) {
	var res usecases.Result
	switch step {
	case session.StepNickname:
		res = b.Wizard.SubmitNickname(ctx, chatID, text)
	case session.StepPassword:
		res = b.Wizard.SubmitPassword(ctx, chatID, text)
	case session.StepPasswordConfirm:
		// Buttons decide this step; typed text re-shows the question.
		b.render(ctx, chatID, msgPromptWeakPwd, kbWeakConfirm())
		return
	case session.StepEmail:
		res = b.Wizard.SubmitEmail(ctx, chatID, text)
	default:
		res = b.Wizard.Cancel(ctx, chatID)
	}
	b.renderWizard(ctx, chatID, step, res)
}

// renderWizard maps a wizard result to the next screen. Non-terminal
// errors keep the step keyboard so the user can retry or back out.
func (b *Bot) renderWizard(ctx context.Context, chatID int64, step session.Step, res usecases.Result) {
	switch res.Status {
	case usecases.StatusPrompt:
		if res.Step == session.StepPasswordConfirm {
			b.render(ctx, chatID, msgPromptWeakPwd, kbWeakConfirm())
			return
		}
		b.render(ctx, chatID, promptText(res.Step), kbWizard(res.Step))
	case usecases.StatusCompleted:
		b.render(ctx, chatID, renderSuccess(res.Username), kbBack())
	case usecases.StatusCancelled:
		b.render(ctx, chatID, msgCancelled, kbMain(b.Runtime.Features()))
	case usecases.StatusError:
		text := errorText(res.Code, res.MaxAccounts)
		if res.Code.Terminal() {
			b.render(ctx, chatID, text, kbBack())
			return
		}
		b.render(ctx, chatID, text+"\n\n"+promptText(step), kbWizard(step))
	}
}

// renderLifecycle handles the single-input flows (reset, change
// password). Validation and ownership errors re-show the prompt.
func (b *Bot) renderLifecycle(ctx context.Context, chatID int64, res usecases.Result, prompt, done string) {
	switch res.Status {
	case usecases.StatusPrompt:
		b.render(ctx, chatID, prompt, kbCancel())
	case usecases.StatusCompleted:
		b.render(ctx, chatID, done, kbBack())
	case usecases.StatusCancelled:
		b.render(ctx, chatID, msgCancelled, kbMain(b.Runtime.Features()))
	case usecases.StatusError:
		text := errorText(res.Code, res.MaxAccounts)
		if res.Code == usecases.CodeOwnership {
			// Stays in the flow; a typo should not force a restart.
			b.render(ctx, chatID, text+"\n\n"+prompt, kbCancel())
			return
		}
		if res.Code.Terminal() {
			b.render(ctx, chatID, text, kbBack())
			return
		}
		b.render(ctx, chatID, text+"\n\n"+prompt, kbCancel())
	}
}

// --- callbacks ---

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID
	data := q.Data

	switch {
	case data == cbBackToMain:
		b.cancelAny(ctx, chatID)
		b.render(ctx, chatID, msgStart, kbMain(b.Runtime.Features()))

	case data == cbRegStart:
		res := b.Wizard.Start(ctx, chatID)
		b.renderWizard(ctx, chatID, session.StepNickname, res)
	case data == cbWizBack:
		res := b.Wizard.Back(ctx, chatID)
		b.renderWizard(ctx, chatID, "", res)
	case data == cbWizCancel:
		b.cancelAny(ctx, chatID)
		b.render(ctx, chatID, msgCancelled, kbMain(b.Runtime.Features()))
	case data == cbWeakAccept || data == cbWeakReject:
		res := b.Wizard.ConfirmWeakPassword(ctx, chatID, data == cbWeakAccept)
		b.renderWizard(ctx, chatID, session.StepPasswordConfirm, res)

	case data == cbShowInfo:
		b.showConnectionInfo(ctx, chatID)
	case data == cbShowNews:
		text := b.News.Get()
		if text == "" {
			text = msgNewsEmpty
		}
		b.render(ctx, chatID, text, kbBack())

	case data == cbForgot:
		res := b.Lifecycle.RequestReset(ctx, chatID)
		b.renderLifecycle(ctx, chatID, res, msgForgotPrompt, "")

	case data == cbMyAccount:
		b.showAccountList(ctx, chatID, "")
	case strings.HasPrefix(data, cbSelectAcc):
		b.showAccountList(ctx, chatID, strings.TrimPrefix(data, cbSelectAcc))
	case strings.HasPrefix(data, cbChangePwd):
		res := b.Lifecycle.StartChangePassword(ctx, chatID, strings.TrimPrefix(data, cbChangePwd))
		b.renderLifecycle(ctx, chatID, res, msgChangePrompt, "")
	case strings.HasPrefix(data, cbDeleteAcc):
		email := strings.TrimPrefix(data, cbDeleteAcc)
		res := b.Lifecycle.RequestDeletion(ctx, chatID, email)
		if res.Status == usecases.StatusPrompt {
			b.render(ctx, chatID, renderDeleteConfirm(email), kbDeleteConfirm())
			return
		}
		b.render(ctx, chatID, errorText(res.Code, res.MaxAccounts), kbBack())
	case data == cbDeleteYes:
		res := b.Lifecycle.ConfirmDeletion(ctx, chatID)
		if res.Status == usecases.StatusCompleted {
			b.render(ctx, chatID, msgDeleteDone, kbBack())
			return
		}
		b.render(ctx, chatID, errorText(res.Code, res.MaxAccounts), kbBack())

	case data == cbCoinsMenu:
		b.cancelAny(ctx, chatID)
		b.showShopMenu(ctx, chatID)
	case data == cbBuyCoins:
		b.showShopAccounts(ctx, chatID)
	case data == cbCheckBalance:
		b.showBalances(ctx, chatID)
	case strings.HasPrefix(data, cbCoinsSelect):
		email := strings.TrimPrefix(data, cbCoinsSelect)
		res := b.Shop.StartPurchase(ctx, chatID, email)
		if res.Status == usecases.StatusPrompt {
			b.render(ctx, chatID, msgBuyCoins, kbCoinsPackages())
			return
		}
		b.render(ctx, chatID, errorText(res.Code, res.MaxAccounts), kbBack())
	case data == cbCoinsCustom:
		shop := b.Runtime.Shop()
		b.render(ctx, chatID, renderCoinsAmountPrompt(shop.CustomMin, shop.CustomMax), kbCancel())
	case strings.HasPrefix(data, cbCoinsPkg):
		b.purchasePackage(ctx, chatID, strings.TrimPrefix(data, cbCoinsPkg))

	case data == cbAdminCheckDB:
		b.adminCheckDB(ctx, chatID, q.From.ID)
	case data == cbAdminBcast:
		b.adminOpenFlow(ctx, chatID, q.From.ID, session.FlowAdminBroadcast, msgBroadcastPrompt)
	case data == cbAdminDelete:
		b.adminOpenFlow(ctx, chatID, q.From.ID, session.FlowAdminDelete, msgAdminDeletePrompt)
	case data == cbAdminReload:
		b.adminReload(ctx, chatID, q.From.ID)
	case data == cbAdminBack:
		b.showAdminPanel(ctx, chatID, q.From.ID)

	default:
		b.render(ctx, chatID, msgUseMenu, kbMain(b.Runtime.Features()))
	}
}

func (b *Bot) showConnectionInfo(ctx context.Context, chatID int64) {
	text := b.Info.Get()
	if text == "" {
		text = msgInfoEmpty
	}
	if b.ServerURL != "" {
		if png, err := qrcode.Encode(b.ServerURL, qrcode.Medium, 256); err == nil {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "server_qr.png", Bytes: png})
			photo.Caption = text
			photo.ParseMode = tgbotapi.ModeHTML
			photo.ReplyMarkup = kbBack()
			if _, err := b.api.Send(photo); err == nil {
				return
			}
		}
	}
	b.render(ctx, chatID, text, kbBack())
}

func (b *Bot) showAccountList(ctx context.Context, chatID int64, selected string) {
	accounts, err := b.Lifecycle.Accounts(ctx, chatID)
	if err != nil {
		b.render(ctx, chatID, msgDBError, kbBack())
		return
	}
	if len(accounts) == 0 {
		b.render(ctx, chatID, msgNoAccounts, kbBack())
		return
	}

	text := msgSelectAccount
	if selected != "" {
		for _, acc := range accounts {
			if acc.Email == selected {
				text = renderAccountInfo(acc.Username, acc.Email, acc.IsTempPassword)
				break
			}
		}
	}
	b.render(ctx, chatID, text, kbAccountList(accounts, selected, b.Runtime.Features(), b.Runtime.Shop()))
}

// --- currency shop ---

func (b *Bot) showShopMenu(ctx context.Context, chatID int64) {
	if !b.Runtime.Features().CurrencyShop || !b.Runtime.Shop().Enabled {
		b.render(ctx, chatID, msgShopDisabled, kbBack())
		return
	}
	b.render(ctx, chatID, msgCoinsMenu, kbCoinsMenu())
}

func (b *Bot) showShopAccounts(ctx context.Context, chatID int64) {
	accounts, err := b.Shop.Balances(ctx, chatID)
	if err != nil {
		b.render(ctx, chatID, msgDBError, kbBack())
		return
	}
	if len(accounts) == 0 {
		b.render(ctx, chatID, msgNoShopAccounts, kbBack())
		return
	}
	b.render(ctx, chatID, msgSelectForCoins, kbCoinsAccounts(accounts))
}

func (b *Bot) showBalances(ctx context.Context, chatID int64) {
	accounts, err := b.Shop.Balances(ctx, chatID)
	if err != nil {
		b.render(ctx, chatID, msgDBError, kbBack())
		return
	}
	if len(accounts) == 0 {
		b.render(ctx, chatID, msgNoShopAccounts, kbBack())
		return
	}
	b.render(ctx, chatID, renderBalances(accounts), kbBack())
}

func (b *Bot) purchasePackage(ctx context.Context, chatID int64, rawAmount string) {
	amount, err := strconv.Atoi(rawAmount)
	if err != nil {
		return
	}
	sess, err := b.Sessions.Get(ctx, chatID)
	if err != nil || sess == nil || sess.Flow != session.FlowBuyCoins || sess.Email == "" {
		b.showShopAccounts(ctx, chatID)
		return
	}
	email := sess.Email

	res := b.Shop.PurchasePackage(ctx, chatID, email, amount)
	b.cancelAny(ctx, chatID)
	b.renderPurchaseResult(ctx, chatID, email, res)
}

func (b *Bot) handleCoinsAmount(ctx context.Context, chatID int64, text string) {
	sess, err := b.Sessions.Get(ctx, chatID)
	if err != nil || sess == nil {
		return
	}
	email := sess.Email

	res := b.Shop.SubmitCustomAmount(ctx, chatID, text)
	if res.Status == usecases.StatusError && res.Code == usecases.CodeInvalidAmount {
		shop := b.Runtime.Shop()
		b.render(ctx, chatID, renderInvalidAmount(shop.CustomMin, shop.CustomMax), kbCancel())
		return
	}
	b.renderPurchaseResult(ctx, chatID, email, res)
}

func (b *Bot) renderPurchaseResult(ctx context.Context, chatID int64, email string, res usecases.Result) {
	switch res.Status {
	case usecases.StatusCompleted:
		b.render(ctx, chatID, renderPurchase(res.Coins, email, res.Balance), kbBack())
	case usecases.StatusCancelled:
		b.showShopMenu(ctx, chatID)
	default:
		b.render(ctx, chatID, msgPurchaseFailed, kbBack())
	}
}

// --- admin ---

func (b *Bot) adminOpenFlow(ctx context.Context, chatID, fromID int64, flow session.Flow, prompt string) {
	if fromID != b.AdminID || b.AdminID == 0 {
		b.render(ctx, chatID, msgNoAccess, kbBack())
		return
	}
	sess, err := b.Sessions.Get(ctx, chatID)
	if err != nil {
		b.Log.Error("session load", "chat_id", chatID, "err", err)
		return
	}
	if sess == nil {
		sess = &session.Session{ChatID: chatID}
	}
	sess.Flow = flow
	sess.Step = ""
	sess.Email = ""
	if err := b.Sessions.Put(ctx, sess); err != nil {
		b.Log.Error("session save", "chat_id", chatID, "err", err)
		return
	}
	b.render(ctx, chatID, prompt, kbAdminBack())
}

func (b *Bot) adminCheckDB(ctx context.Context, chatID, fromID int64) {
	if fromID != b.AdminID || b.AdminID == 0 {
		b.render(ctx, chatID, msgNoAccess, kbBack())
		return
	}
	if !b.Runtime.Features().AdminCheckDB {
		b.render(ctx, chatID, msgFeatureOff, kbAdminBack())
		return
	}
	report, err := b.Stats.Check(ctx)
	if err != nil {
		b.render(ctx, chatID, msgDBError, kbAdminBack())
		return
	}
	b.render(ctx, chatID,
		renderDBReport(report.Credentials, report.GameAccounts, report.Links, report.LatencyMS),
		kbAdminBack())
}

func (b *Bot) adminReload(ctx context.Context, chatID, fromID int64) {
	if fromID != b.AdminID || b.AdminID == 0 {
		b.render(ctx, chatID, msgNoAccess, kbBack())
		return
	}
	changes, err := b.Runtime.Reload()
	if err != nil {
		b.render(ctx, chatID, "Ошибка перезагрузки конфигурации: "+err.Error(), kbAdminBack())
		return
	}
	text := msgReloadOK
	if len(changes) > 0 {
		text += "\n\n" + strings.Join(changes, "\n")
	}
	b.render(ctx, chatID, text, kbAdminBack())
}

// Broadcast sends text to every linked chat. Also used by the ops API.
func (b *Bot) Broadcast(ctx context.Context, text string) (sent, total int, err error) {
	recipients, err := b.Stats.Recipients(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range recipients {
		msg := tgbotapi.NewMessage(id, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(msg); err != nil {
			b.Log.Warn("broadcast delivery failed", "chat_id", id, "err", err)
			continue
		}
		sent++
	}
	b.Log.Info("broadcast finished", "recipients", len(recipients), "sent", sent)
	return sent, len(recipients), nil
}

func (b *Bot) runBroadcast(ctx context.Context, chatID, fromID int64, text string) {
	b.cancelAny(ctx, chatID)
	if fromID != b.AdminID || b.AdminID == 0 {
		b.render(ctx, chatID, msgNoAccess, kbBack())
		return
	}
	sent, total, err := b.Broadcast(ctx, text)
	if err != nil {
		b.render(ctx, chatID, msgDBError, kbAdminBack())
		return
	}
	b.render(ctx, chatID, renderBroadcastDone(sent, total), kbAdminBack())
}

func (b *Bot) runAdminDelete(ctx context.Context, chatID, fromID int64, email string) {
	b.cancelAny(ctx, chatID)
	if fromID != b.AdminID || b.AdminID == 0 {
		b.render(ctx, chatID, msgNoAccess, kbBack())
		return
	}

	res := b.Lifecycle.AdminDeleteAccount(ctx, email)
	if res.Status != usecases.StatusCompleted {
		b.render(ctx, chatID, errorText(res.Code, res.MaxAccounts), kbAdminBack())
		return
	}
	if res.NotifyChatID != 0 && res.NotifyChatID != chatID {
		msg := tgbotapi.NewMessage(res.NotifyChatID, msgDeletedByAdm)
		if _, err := b.api.Send(msg); err != nil {
			b.Log.Warn("deletion notice failed", "chat_id", res.NotifyChatID, "err", err)
		}
	}
	b.render(ctx, chatID, renderAdminDeleted(email), kbAdminBack())
}

// --- rendering helpers ---

// cancelAny drops whatever flow is active; safe with none.
func (b *Bot) cancelAny(ctx context.Context, chatID int64) {
	b.Lifecycle.Cancel(ctx, chatID)
}

// render edits the chat's menu message in place, sending a fresh one
// only when there is nothing to edit or the edit fails.
func (b *Bot) render(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	sess, err := b.Sessions.Get(ctx, chatID)
	if err != nil {
		b.Log.Error("session load", "chat_id", chatID, "err", err)
	}
	if sess == nil {
		sess = &session.Session{ChatID: chatID}
	}

	if sess.MenuMessageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, sess.MenuMessageID, text, kb)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err := b.api.Send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	sent, err := b.api.Send(msg)
	if err != nil {
		b.Log.Error("send failed", "chat_id", chatID, "err", err)
		return
	}
	sess.MenuMessageID = sent.MessageID
	if err := b.Sessions.Put(ctx, sess); err != nil {
		b.Log.Error("session save", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	// Best effort; old messages may already be gone.
	_, _ = b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

func renderBalances(accounts []entities.AccountInfo) string {
	var sb strings.Builder
	sb.WriteString("💳 <b>Баланс аккаунтов</b>\n\n")
	for _, acc := range accounts {
		sb.WriteString("📧 ")
		sb.WriteString(acc.Email)
		sb.WriteString(" (💰 ")
		sb.WriteString(strconv.Itoa(acc.Coins))
		sb.WriteString(" монет)\n")
	}
	return sb.String()
}
