// Package session holds per-user conversation state: which flow is
// active, the fields collected so far and the message ids needed to
// re-render menus in place. Entries expire after an inactivity TTL; an
// expired session is the same as no session, and handlers restart the
// flow instead of crashing.
package session

import (
	"context"
	"time"
)

// DefaultTTL bounds how long an abandoned flow keeps its state.
const DefaultTTL = time.Hour

// Flow is the active multi-step conversation, if any.
type Flow string

const (
	FlowNone           Flow = ""
	FlowRegister       Flow = "register"
	FlowReset          Flow = "reset"
	FlowChangePassword Flow = "change_password"
	FlowDeleteConfirm  Flow = "delete_confirm"
	FlowBuyCoins       Flow = "buy_coins"
	FlowAdminBroadcast Flow = "admin_broadcast"
	FlowAdminDelete    Flow = "admin_delete"
)

// Step is the wizard position within FlowRegister.
type Step string

const (
	StepNickname        Step = "nickname"
	StepPassword        Step = "password"
	StepPasswordConfirm Step = "password_confirm"
	StepEmail           Step = "email"
)

// Session is the transient state for one chat. It never reaches the
// account repository; collected fields are discarded on cancel.
type Session struct {
	ChatID int64 `json:"chat_id"`
	Flow   Flow  `json:"flow"`
	Step   Step  `json:"step,omitempty"`

	// Collected-but-uncommitted wizard fields.
	Nickname        string `json:"nickname,omitempty"`
	Password        string `json:"password,omitempty"`
	PendingPassword string `json:"pending_password,omitempty"` // weak, awaiting confirm

	// Target of a reset / change-password / delete / purchase flow.
	Email string `json:"email,omitempty"`

	// Message id of the last rendered menu, so repeated renders edit in
	// place instead of stacking.
	MenuMessageID int `json:"menu_message_id,omitempty"`
}

// Store persists sessions with TTL-based eviction. Get returns nil for
// a missing or expired session.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
}
