package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/gin-admin-kit/internal/models"
	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
)

// memoryStore is a UnitOfWorkFactory that applies a transaction's writes
// only when fn succeeds.
type memoryStore struct {
	mu              sync.Mutex
	users           map[string]models.User
	tokens          map[string]models.RefreshToken
	failTokenCreate error
	commits         int
	rollbacks       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]models.User{}, tokens: map[string]models.RefreshToken{}}
}

func (s *memoryStore) Do(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, users: map[string]models.User{}, tokens: map[string]models.RefreshToken{}}
	for k, v := range s.users {
		tx.users[k] = v
	}
	for k, v := range s.tokens {
		tx.tokens[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		s.rollbacks++
		return err
	}
	s.users, s.tokens = tx.users, tx.tokens
	s.commits++
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryStore) userByEmail(email string) *models.User {
	u, err := s.FindByEmail(context.Background(), email)
	if err != nil {
		return nil
	}
	return u
}

func (s *memoryStore) tokensFor(userID string) []models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

type memoryTx struct {
	store  *memoryStore
	users  map[string]models.User
	tokens map[string]models.RefreshToken
}

func (tx *memoryTx) Users() UserRepository                 { return memoryUsers{tx} }
func (tx *memoryTx) RefreshTokens() RefreshTokenRepository { return memoryTokens{tx} }

type memoryUsers struct{ tx *memoryTx }

func (r memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.tx.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (r memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.tx.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	for _, u := range r.tx.users {
		if u.Email == user.Email {
			return appErrors.ErrEmailTaken
		}
	}
	r.tx.users[user.ID] = *user
	return nil
}

func (r memoryUsers) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	u, ok := r.tx.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	r.tx.users[id] = u
	return nil
}

func (r memoryUsers) UpdateRole(_ context.Context, id string, role models.UserRole, at time.Time) error {
	u, ok := r.tx.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	u.UpdatedAt = at
	r.tx.users[id] = u
	return nil
}

type memoryTokens struct{ tx *memoryTx }

func (r memoryTokens) Create(_ context.Context, token *models.RefreshToken) error {
	if r.tx.store.failTokenCreate != nil {
		return r.tx.store.failTokenCreate
	}
	r.tx.tokens[token.ID] = *token
	return nil
}

func (r memoryTokens) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	for _, t := range r.tx.tokens {
		if t.TokenHash == hash {
			t := t
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memoryTokens) Revoke(_ context.Context, id string, at time.Time) error {
	t, ok := r.tx.tokens[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.RevokedAt = &at
	r.tx.tokens[id] = t
	return nil
}

func (r memoryTokens) RevokeForUser(_ context.Context, userID string, at time.Time) error {
	for id, t := range r.tx.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			at := at
			t.RevokedAt = &at
			r.tx.tokens[id] = t
		}
	}
	return nil
}

func (r memoryTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for id, t := range r.tx.tokens {
		if t.RevokedAt != nil || t.ExpiresAt.Before(before) {
			delete(r.tx.tokens, id)
			n++
		}
	}
	return n, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, entry models.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type testEnv struct {
	store    *memoryStore
	audit    *recordingAudit
	commands *CommandBus
	queries  *QueryBus
	deps     CommandDeps
	qdeps    QueryDeps
}

func newTestEnv() *testEnv {
	store := newMemoryStore()
	audit := &recordingAudit{}
	commands, queries, err := NewBuses()
	if err != nil {
		panic(err)
	}
	return &testEnv{
		store:    store,
		audit:    audit,
		commands: commands,
		queries:  queries,
		deps: CommandDeps{
			UoW:    store,
			Hasher: NewBcryptHasher(bcrypt.MinCost),
			Tokens: NewTokenService(TokenConfig{Secret: "test-secret", Issuer: "test"}),
			Audit:  audit,
		},
		qdeps: QueryDeps{Users: store},
	}
}
