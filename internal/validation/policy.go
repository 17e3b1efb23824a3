// Package validation holds the input policy the registration and
// password flows consult before anything reaches the repository.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNickname = errors.New("invalid nickname")
	ErrPassword = errors.New("invalid password")
	ErrEmail    = errors.New("invalid email")
)

// Policy is injected into the wizard and lifecycle manager. A password
// may be valid but weak; the wizard turns weak into a confirm step.
type Policy interface {
	ValidateNickname(nick string) error
	ValidatePassword(pwd string) (weak bool, err error)
	ValidateEmail(email string) error
}

var (
	nicknameRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	cyrillicRe = regexp.MustCompile(`[А-Яа-яЁё]`)
	emailRe    = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// BasicPolicy mirrors the original game-server rules: alphanumeric
// nickname, no Cyrillic in the password, a permissive email shape.
// It never reports a password as weak.
type BasicPolicy struct{}

func (BasicPolicy) ValidateNickname(nick string) error {
	if !nicknameRe.MatchString(nick) {
		return fmt.Errorf("%w: latin letters and digits only", ErrNickname)
	}
	return nil
}

func (BasicPolicy) ValidatePassword(pwd string) (bool, error) {
	if pwd == "" {
		return false, fmt.Errorf("%w: empty", ErrPassword)
	}
	if cyrillicRe.MatchString(pwd) {
		return false, fmt.Errorf("%w: cyrillic characters", ErrPassword)
	}
	return false, nil
}

func (BasicPolicy) ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: bad format", ErrEmail)
	}
	return nil
}

const (
	minNicknameLen = 3
	maxNicknameLen = 32
	minPasswordLen = 8
	maxPasswordLen = 128
	maxEmailLen    = 254
	maxLocalLen    = 64
)

var reservedNicknames = map[string]struct{}{
	"admin": {}, "administrator": {}, "root": {}, "system": {}, "test": {},
	"guest": {}, "user": {}, "mod": {}, "moderator": {}, "support": {},
	"help": {}, "api": {}, "www": {}, "mail": {}, "email": {}, "bot": {},
	"null": {}, "undefined": {}, "gm": {}, "gamemaster": {}, "console": {},
	"world": {}, "guild": {}, "player": {}, "character": {}, "account": {},
}

var weakPasswords = map[string]struct{}{
	"password": {}, "123456": {}, "123456789": {}, "qwerty": {}, "abc123": {},
	"password123": {}, "admin": {}, "letmein": {}, "welcome": {}, "monkey": {},
	"1234567890": {}, "dragon": {}, "password1": {}, "qwerty123": {},
	"changeme": {}, "default": {},
}

// StrictPolicy adds length bounds, reserved names, a weak-password list,
// character-class scoring and an email provider allowlist on top of the
// basic rules. Passwords that pass but score under three character
// classes come back weak so the wizard can ask for confirmation.
type StrictPolicy struct {
	// ExtraProviders extends the built-in allowlist; AllowAnyProvider
	// disables the allowlist entirely.
	ExtraProviders   []string
	AllowAnyProvider bool
}

func (p StrictPolicy) ValidateNickname(nick string) error {
	if _, ok := reservedNicknames[strings.ToLower(nick)]; ok {
		return fmt.Errorf("%w: reserved name", ErrNickname)
	}
	if len(nick) < minNicknameLen {
		return fmt.Errorf("%w: shorter than %d characters", ErrNickname, minNicknameLen)
	}
	if len(nick) > maxNicknameLen {
		return fmt.Errorf("%w: longer than %d characters", ErrNickname, maxNicknameLen)
	}
	if !nicknameRe.MatchString(nick) {
		return fmt.Errorf("%w: latin letters and digits only", ErrNickname)
	}
	if digitsOnly(nick) {
		return fmt.Errorf("%w: digits only", ErrNickname)
	}
	return nil
}

func (p StrictPolicy) ValidatePassword(pwd string) (bool, error) {
	if pwd == "" {
		return false, fmt.Errorf("%w: empty", ErrPassword)
	}
	if cyrillicRe.MatchString(pwd) {
		return false, fmt.Errorf("%w: cyrillic characters", ErrPassword)
	}
	if len(pwd) < minPasswordLen {
		return false, fmt.Errorf("%w: shorter than %d characters", ErrPassword, minPasswordLen)
	}
	if len(pwd) > maxPasswordLen {
		return false, fmt.Errorf("%w: longer than %d characters", ErrPassword, maxPasswordLen)
	}
	for _, r := range pwd {
		if r > 127 {
			return false, fmt.Errorf("%w: non-ascii characters", ErrPassword)
		}
	}

	score := 0
	for _, re := range []*regexp.Regexp{upperRe, lowerRe, digitRe, specialRe} {
		if re.MatchString(pwd) {
			score++
		}
	}
	if score < 2 {
		return false, fmt.Errorf("%w: needs at least two character types", ErrPassword)
	}
	if _, ok := weakPasswords[strings.ToLower(pwd)]; ok {
		return false, fmt.Errorf("%w: too common", ErrPassword)
	}
	return score < 3, nil
}

func (p StrictPolicy) ValidateEmail(email string) error {
	if email == "" || len(email) > maxEmailLen {
		return fmt.Errorf("%w: bad length", ErrEmail)
	}
	if strings.Count(email, "@") != 1 {
		return fmt.Errorf("%w: must contain exactly one @", ErrEmail)
	}
	if strings.ContainsAny(email, " \t\n\r") {
		return fmt.Errorf("%w: whitespace", ErrEmail)
	}
	if strings.Contains(email, "..") {
		return fmt.Errorf("%w: consecutive dots", ErrEmail)
	}
	at := strings.IndexByte(email, '@')
	local, domain := email[:at], email[at+1:]
	if local == "" || len(local) > maxLocalLen {
		return fmt.Errorf("%w: bad local part", ErrEmail)
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") ||
		strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("%w: leading or trailing dot", ErrEmail)
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: bad format", ErrEmail)
	}
	if !p.AllowAnyProvider && !p.providerKnown(strings.ToLower(domain)) {
		return fmt.Errorf("%w: unknown mail provider %q", ErrEmail, domain)
	}
	return nil
}

func (p StrictPolicy) providerKnown(domain string) bool {
	if _, ok := knownProviders[domain]; ok {
		return true
	}
	for _, d := range p.ExtraProviders {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
