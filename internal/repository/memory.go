package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/entities"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/hash"
)

// MemoryRepository keeps the four tables in process memory behind one
// mutex, which makes every operation trivially atomic. Used by tests
// and by the --memory development mode.
type MemoryRepository struct {
	mu          sync.Mutex
	maxAccounts func() int

	nextID      int
	credentials map[string]*entities.Credential // key: uppercase email
	accounts    map[string]*entities.GameAccount
	grants      map[int]*entities.AccessGrant // key: battlenet id
	links       []entities.TelegramLink
}

func NewMemoryRepository(maxAccounts func() int) *MemoryRepository {
	return &MemoryRepository{
		maxAccounts: maxAccounts,
		nextID:      1,
		credentials: make(map[string]*entities.Credential),
		accounts:    make(map[string]*entities.GameAccount),
		grants:      make(map[int]*entities.AccessGrant),
	}
}

func (r *MemoryRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.credentials[strings.ToUpper(email)]
	return ok, nil
}

func (r *MemoryRepository) CountLinkedAccounts(_ context.Context, telegramID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLinksLocked(telegramID), nil
}

func (r *MemoryRepository) countLinksLocked(telegramID int64) int {
	n := 0
	for _, l := range r.links {
		if l.TelegramID == telegramID {
			n++
		}
	}
	return n
}

func (r *MemoryRepository) CreateRegistrationBundle(_ context.Context, _, password, email string, telegramID int64) (string, error) {
	mu := strings.ToUpper(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.countLinksLocked(telegramID) >= r.maxAccounts() {
		return "", ErrAccountLimit
	}
	if _, ok := r.credentials[mu]; ok {
		return "", ErrEmailExists
	}

	id := r.nextID
	username := strconv.Itoa(id) + "#1"
	for _, a := range r.accounts {
		if a.Username == username {
			return "", ErrUsernameExists
		}
	}
	r.nextID++

	r.credentials[mu] = &entities.Credential{
		ID:       id,
		Email:    mu,
		AuthHash: hash.AuthHash(mu, password),
	}
	r.accounts[mu] = &entities.GameAccount{
		ID:          id,
		Username:    username,
		AccountHash: hash.AccountHash(username, password),
		Email:       mu,
		BattlenetID: id,
	}
	r.grants[id] = &entities.AccessGrant{AccountID: id, GMLevel: 3, RealmID: -1}
	r.links = append(r.links, entities.TelegramLink{TelegramID: telegramID, Email: mu})

	return username, nil
}

func (r *MemoryRepository) ResetPassword(_ context.Context, email string) (string, error) {
	mu := strings.ToUpper(email)

	tmp, err := newTempPassword()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.credentials[mu]
	if !ok {
		return "", ErrNotFound
	}
	cred.AuthHash = hash.AuthHash(mu, tmp)
	cred.IsTempPassword = true
	cred.TempPassword = tmp
	if acc, ok := r.accounts[mu]; ok {
		acc.AccountHash = hash.AccountHash(acc.Username, tmp)
	}
	return tmp, nil
}

func (r *MemoryRepository) ChangePassword(_ context.Context, email, newPassword string) error {
	mu := strings.ToUpper(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	cred, ok := r.credentials[mu]
	if !ok {
		return ErrNotFound
	}
	cred.AuthHash = hash.AuthHash(mu, newPassword)
	cred.IsTempPassword = false
	cred.TempPassword = ""
	if acc, ok := r.accounts[mu]; ok {
		acc.AccountHash = hash.AccountHash(acc.Username, newPassword)
	}
	return nil
}

func (r *MemoryRepository) DeleteAccountForUser(_ context.Context, telegramID int64, email string) error {
	mu := strings.ToUpper(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	owned := false
	for _, l := range r.links {
		if l.TelegramID == telegramID && l.Email == mu {
			owned = true
			break
		}
	}
	if !owned {
		return ErrOwnership
	}

	r.deleteBundleLocked(mu)
	return nil
}

func (r *MemoryRepository) DeleteAccountAsAdmin(_ context.Context, email string) (int64, error) {
	mu := strings.ToUpper(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.credentials[mu]; !ok {
		return 0, ErrNotFound
	}

	var linked int64
	for _, l := range r.links {
		if l.Email == mu {
			linked = l.TelegramID
			break
		}
	}
	r.deleteBundleLocked(mu)
	return linked, nil
}

// deleteBundleLocked removes children before parents, same order the
// SQL cascade uses.
func (r *MemoryRepository) deleteBundleLocked(mu string) {
	if acc, ok := r.accounts[mu]; ok {
		delete(r.grants, acc.BattlenetID)
	}
	delete(r.accounts, mu)
	delete(r.credentials, mu)

	kept := r.links[:0]
	for _, l := range r.links {
		if l.Email != mu {
			kept = append(kept, l)
		}
	}
	r.links = kept
}

func (r *MemoryRepository) AccountsForUser(_ context.Context, telegramID int64) ([]entities.AccountInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entities.AccountInfo
	for _, l := range r.links {
		if l.TelegramID != telegramID {
			continue
		}
		cred, ok := r.credentials[l.Email]
		if !ok {
			continue
		}
		info := entities.AccountInfo{
			Email:          cred.Email,
			IsTempPassword: cred.IsTempPassword,
			TempPassword:   cred.TempPassword,
		}
		if acc, ok := r.accounts[l.Email]; ok {
			info.Username = acc.Username
			info.Coins = acc.Coins
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *MemoryRepository) AccountByEmail(_ context.Context, email string) (*AdminLookup, error) {
	mu := strings.ToUpper(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[mu]
	if !ok {
		return nil, ErrNotFound
	}
	lookup := &AdminLookup{Username: acc.Username}
	for _, l := range r.links {
		if l.Email == mu {
			lookup.TelegramID = l.TelegramID
			break
		}
	}
	return lookup, nil
}

func (r *MemoryRepository) ListLinkedTelegramIDs(_ context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]struct{})
	var ids []int64
	for _, l := range r.links {
		if _, ok := seen[l.TelegramID]; ok {
			continue
		}
		seen[l.TelegramID] = struct{}{}
		ids = append(ids, l.TelegramID)
	}
	return ids, nil
}

func (r *MemoryRepository) AddCoins(_ context.Context, email string, amount int) (int, error) {
	mu := strings.ToUpper(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[mu]
	if !ok {
		return 0, ErrNotFound
	}
	acc.Coins += amount
	return acc.Coins, nil
}

func (r *MemoryRepository) Counts(_ context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Credentials:  len(r.credentials),
		GameAccounts: len(r.accounts),
		Links:        len(r.links),
	}, nil
}
