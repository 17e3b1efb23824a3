package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/config"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/entities"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/usecases"
)

// Callback data values. Account-scoped actions append the email after
// the prefix.
const (
	cbRegStart     = "reg_start"
	cbShowInfo     = "show_info"
	cbShowNews     = "show_news"
	cbMyAccount    = "my_account"
	cbForgot       = "forgot"
	cbBackToMain   = "back_to_main"
	cbWizBack      = "wiz_back"
	cbWizCancel    = "wiz_cancel"
	cbWeakAccept   = "weak_accept"
	cbWeakReject   = "weak_reject"
	cbSelectAcc    = "select_account_"
	cbChangePwd    = "change_password_"
	cbDeleteAcc    = "delete_account_"
	cbDeleteYes    = "delete_confirm"
	cbCoinsMenu    = "coins_menu"
	cbBuyCoins     = "buy_coins"
	cbCheckBalance = "check_balance"
	cbCoinsSelect  = "coins_select_"
	cbCoinsPkg     = "buy_coins_"
	cbCoinsCustom  = "buy_coins_custom"

	cbAdminCheckDB = "admin_check_db"
	cbAdminBcast   = "admin_broadcast"
	cbAdminDelete  = "admin_delete_account"
	cbAdminReload  = "admin_reload_config"
	cbAdminBack    = "admin_back"
)

// kbMain builds the main menu; rows for disabled features are omitted
// entirely rather than greyed out.
func kbMain(features config.Features) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if features.Registration {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Регистрация", cbRegStart)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Как подключиться", cbShowInfo),
		tgbotapi.NewInlineKeyboardButtonData("Новости", cbShowNews)))

	var row []tgbotapi.InlineKeyboardButton
	if features.AccountManagement {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Мои аккаунты", cbMyAccount))
	}
	if features.PasswordReset {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Сброс пароля", cbForgot))
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// kbWizard shows Back on every step except the first.
func kbWizard(step session.Step) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if step != session.StepNickname {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", cbWizBack))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("Отмена", cbWizCancel))
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// kbCancel is the single-input flow keyboard (reset, new password,
// custom amount).
func kbCancel() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Отмена", cbWizCancel)))
}

func kbWeakConfirm() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да, оставить", cbWeakAccept),
			tgbotapi.NewInlineKeyboardButtonData("Ввести другой", cbWeakReject)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Отмена", cbWizCancel)))
}

func kbBack() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("На главную", cbBackToMain)))
}

// kbAccountList shows one row per linked account; selecting one appends
// its management actions below the list.
func kbAccountList(accounts []entities.AccountInfo, selected string, features config.Features, shop config.ShopSettings) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, acc := range accounts {
		label := "📧 " + acc.Email
		if acc.Email == selected {
			label += " ✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbSelectAcc+acc.Email)))
	}

	if selected != "" && features.AccountManagement {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сменить пароль", cbChangePwd+selected)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Удалить аккаунт", cbDeleteAcc+selected)))
	}
	if features.CurrencyShop && shop.Enabled {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Купить валюту", cbCoinsMenu)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("На главную", cbBackToMain)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func kbDeleteConfirm() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да, удалить", cbDeleteYes),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", cbBackToMain)))
}

func kbCoinsMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Купить валюту", cbBuyCoins)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Мой баланс", cbCheckBalance)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("На главную", cbBackToMain)))
}

func kbCoinsAccounts(accounts []entities.AccountInfo) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, acc := range accounts {
		label := fmt.Sprintf("📧 %s (💰 %d монет)", acc.Email, acc.Coins)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbCoinsSelect+acc.Email)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", cbCoinsMenu)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func kbCoinsPackages() tgbotapi.InlineKeyboardMarkup {
	labels := map[int]string{
		100: "🪙 100 монет - 50₽",
		200: "🪙 200 монет - 90₽",
		300: "💰 300 монет - 130₽",
		400: "💰 400 монет - 160₽",
		500: "💎 500 монет - 200₽",
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, amount := range usecases.CoinPackages {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labels[amount], fmt.Sprintf("%s%d", cbCoinsPkg, amount))))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Свое количество", cbCoinsCustom)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", cbCoinsMenu)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func kbAdmin(features config.Features) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if features.AdminCheckDB {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Проверить БД", cbAdminCheckDB)))
	}
	if features.AdminBroadcast {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Рассылка", cbAdminBcast)))
	}
	if features.AdminDeleteAccount {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Удалить аккаунт", cbAdminDelete)))
	}
	if features.AdminReloadConfig {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Перезагрузить конфиг", cbAdminReload)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("На главную", cbBackToMain)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func kbAdminBack() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Назад в админку", cbAdminBack)))
}
