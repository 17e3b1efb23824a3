package entities

// Credential is the battlenet_accounts row: the e-mail identity the game
// client logs in with. Email is stored normalized to uppercase.
type Credential struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	AuthHash       string `json:"-"`
	IsTempPassword bool   `json:"is_temp_password"`
	TempPassword   string `json:"-"` // plaintext, set only while IsTempPassword
}

// GameAccount is the legacy account row linked 1:1 to a Credential.
type GameAccount struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	AccountHash string `json:"-"`
	Email       string `json:"email"`
	BattlenetID int    `json:"battlenet_account"`
	Coins       int    `json:"coins"`
}

// AccessGrant is the account_access row issued at registration.
type AccessGrant struct {
	AccountID int `json:"id"`
	GMLevel   int `json:"gmlevel"`
	RealmID   int `json:"realm_id"`
}

// TelegramLink associates a Telegram user with one registered e-mail.
type TelegramLink struct {
	TelegramID int64  `json:"telegram_id"`
	Email      string `json:"email"`
}

// AccountInfo is the read model shown in the "my accounts" menu.
type AccountInfo struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	IsTempPassword bool   `json:"is_temp_password"`
	TempPassword   string `json:"temp_password,omitempty"`
	Coins          int    `json:"coins"`
}
