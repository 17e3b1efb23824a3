package telegram

import (
	"fmt"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/usecases"
)

// BotVersion is shown in /start and /version.
const BotVersion = "2.0.0"

// User-facing texts (RU). HTML parse mode throughout.
const (
	msgStart         = "Добро пожаловать!\n\nВерсия бота: " + BotVersion
	msgVersion       = "Версия бота: " + BotVersion
	msgUseMenu       = "❓ Используйте меню или /start"
	msgNoAccess      = "Нет доступа."
	msgFeatureOff    = "Функция отключена."
	msgDBError       = "Ошибка подключения к БД"
	msgCancelled     = "Действие отменено."
	msgNewsEmpty     = "Новостей пока нет."
	msgInfoEmpty     = "Информация о подключении недоступна."
	msgPromptNick    = "Введите никнейм"
	msgPromptPwd     = "Введите пароль"
	msgPromptMail    = "Введите e-mail"
	msgPromptWeakPwd = "⚠️ Пароль слабый. Использовать его всё равно?"
	msgErrNick       = "Некорректный никнейм. Используйте латиницу и цифры."
	msgErrPwd        = "Некорректный пароль. Не используйте кириллицу."
	msgErrMail       = "Некорректный e-mail."
	msgErrExists     = "Такой e-mail уже зарегистрирован. Укажите другой."
	msgErrInternal   = "Внутренняя ошибка. Повторите позже."
	msgNotFound      = "E-mail не найден."
	msgNoAccounts    = "У вас нет привязанных аккаунтов."
	msgSelectAccount = "Выберите аккаунт для просмотра:"
	msgForgotPrompt  = "🔄 Введите e-mail для сброса пароля:"
	msgChangePrompt  = "Введите новый пароль:"
	msgChangeDone    = "Пароль успешно изменён!"
	msgDeleteDone    = "Аккаунт удалён!"
	msgDeletedByAdm  = "Ваш аккаунт был удалён администратором."

	msgAdminPanel        = "Админ-панель"
	msgBroadcastPrompt   = "🔹 Введите текст рассылки:"
	msgAdminDeletePrompt = "Введите e-mail аккаунта для удаления:"
	msgReloadOK          = "Конфигурация перезагружена."

	msgCoinsMenu      = "🛒 <b>Магазин валюты</b>\n\nЗдесь вы можете купить монеты для аккаунта."
	msgBuyCoins       = "🛒 <b>Покупка валюты</b>\n\nВыберите пакет:"
	msgSelectForCoins = "🛒 <b>Выбор аккаунта</b>\n\nДля какого e-mail пополнить баланс?"
	msgShopDisabled   = "Магазин валюты отключен."
	msgNoShopAccounts = "Нет аккаунтов для операций с валютой."
	msgPurchaseFailed = "❌ Ошибка при покупке. Повторите позже."
)

func renderSuccess(username string) string {
	return fmt.Sprintf("Готово: аккаунт создан! Логин: <code>%s</code>", username)
}

func renderReset(tempPassword string) string {
	return fmt.Sprintf("Пароль сброшен. Временный пароль: <code>%s</code>\nПоменяйте его после входа.", tempPassword)
}

func renderAccountLimit(max int) string {
	return fmt.Sprintf("Достигнут лимит аккаунтов: %d.", max)
}

func renderAccountInfo(username, email string, temp bool) string {
	status := "постоянный"
	if temp {
		status = "временный (смените после входа)"
	}
	return fmt.Sprintf("Ваш аккаунт:\nЛогин: <code>%s</code>\nE-mail: <code>%s</code>\nСтатус пароля: %s",
		username, email, status)
}

func renderPurchase(amount int, email string, balance int) string {
	return fmt.Sprintf("✅ <b>Покупка успешна!</b>\n\nНачислено: %d монет\n📧 Аккаунт: %s\n💳 Баланс: %d монет",
		amount, email, balance)
}

func renderCoinsAmountPrompt(min, max int) string {
	return fmt.Sprintf("🛒 <b>Своё количество</b>\n\nВведите число от %d до %d", min, max)
}

func renderInvalidAmount(min, max int) string {
	return fmt.Sprintf("❌ Некорректное количество. Введите от %d до %d.", min, max)
}

func renderDeleteConfirm(email string) string {
	return fmt.Sprintf("Удалить аккаунт <code>%s</code>? Это действие необратимо.", email)
}

func renderBroadcastDone(sent, total int) string {
	return fmt.Sprintf("Рассылка завершена: доставлено %d из %d.", sent, total)
}

func renderAdminDeleted(email string) string {
	return fmt.Sprintf("Аккаунт удалён: email=%s", email)
}

func renderDBReport(credentials, accounts, links int, latencyMS int64) string {
	return fmt.Sprintf("Соединение с БД: успешно.\n\nУчётных записей: %d\nИгровых аккаунтов: %d\nПривязок: %d\nОтклик: %d мс",
		credentials, accounts, links, latencyMS)
}

func promptText(step session.Step) string {
	switch step {
	case session.StepNickname:
		return msgPromptNick
	case session.StepPassword:
		return msgPromptPwd
	case session.StepPasswordConfirm:
		return msgPromptWeakPwd
	case session.StepEmail:
		return msgPromptMail
	default:
		return msgUseMenu
	}
}

// errorText maps a flow error code to its message. Ownership renders
// exactly like not-found so probing reveals nothing.
func errorText(code usecases.Code, maxAccounts int) string {
	switch code {
	case usecases.CodeInvalidNickname:
		return msgErrNick
	case usecases.CodeInvalidPassword:
		return msgErrPwd
	case usecases.CodeInvalidEmail:
		return msgErrMail
	case usecases.CodeAccountLimit:
		return renderAccountLimit(maxAccounts)
	case usecases.CodeEmailExists, usecases.CodeUsernameExists:
		return msgErrExists
	case usecases.CodeNotFound, usecases.CodeOwnership:
		return msgNotFound
	case usecases.CodeFeatureDisabled:
		return msgFeatureOff
	default:
		return msgErrInternal
	}
}
