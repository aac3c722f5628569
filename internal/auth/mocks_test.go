package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftboard/auth-api/internal/user"
)

// memUserRepo is an in-memory credential store. Create holds the lock
// across the existence check and the insert, mirroring the atomic
// uniqueness guarantee the database constraint provides.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*user.User)}
}

func (r *memUserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[u.Username]; exists {
		return nil, user.ErrDuplicate
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, user.ErrDuplicate
		}
	}

	stored := *u
	stored.ID = uuid.New()
	r.users[u.Username] = &stored

	copied := stored
	return &copied, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) Enable(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return user.ErrNotFound
	}
	u.Enabled = true
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// memVerificationRepo is an in-memory verification token store with
// consume-deletes semantics.
type memVerificationRepo struct {
	mu     sync.Mutex
	tokens map[string]string // token -> username
}

func newMemVerificationRepo() *memVerificationRepo {
	return &memVerificationRepo{tokens: make(map[string]string)}
}

func (r *memVerificationRepo) Issue(ctx context.Context, username string) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = username
	return token, nil
}

func (r *memVerificationRepo) Consume(ctx context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.tokens[token]
	if !ok {
		return "", ErrInvalidVerificationToken
	}
	delete(r.tokens, token)
	return username, nil
}

func (r *memVerificationRepo) tokensFor(username string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for token, u := range r.tokens {
		if u == username {
			out = append(out, token)
		}
	}
	return out
}

// memRefreshRepo is an in-memory refresh token store.
type memRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken // keyed by token hash
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{tokens: make(map[string]*RefreshToken)}
}

func (r *memRefreshRepo) Store(ctx context.Context, username, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[hashToken(token)] = &RefreshToken{
		Username:  username,
		TokenHash: hashToken(token),
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	return nil
}

func (r *memRefreshRepo) Get(ctx context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[hashToken(token)]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	if rt.IsRevoked() {
		return nil, ErrRefreshTokenRevoked
	}
	if rt.IsExpired() {
		return nil, ErrRefreshTokenExpired
	}
	copied := *rt
	return &copied, nil
}

func (r *memRefreshRepo) Revoke(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[hashToken(token)]
	if !ok {
		return ErrRefreshTokenNotFound
	}
	now := time.Now()
	rt.RevokedAt = &now
	return nil
}

func (r *memRefreshRepo) RevokeAllForUser(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, rt := range r.tokens {
		if rt.Username == username {
			rt.RevokedAt = &now
		}
	}
	return nil
}

// expire backdates a stored token so Get reports it expired.
func (r *memRefreshRepo) expire(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rt, ok := r.tokens[hashToken(token)]; ok {
		rt.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

// capturingMailService records sent activation emails.
type capturingMailService struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	recipient string
	token     string
}

func (m *capturingMailService) SendActivationEmail(ctx context.Context, recipient, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{recipient: recipient, token: token})
	return nil
}

func (m *capturingMailService) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *capturingMailService) last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// passthroughTx runs the function without a real transaction; the fakes
// fail fast on Create, so no partial state is left behind.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
