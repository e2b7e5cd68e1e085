package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
	"github.com/nicestack/user-service/internal/infrastructure/token"
)

// ---------------------------------------------------------------------------
// In-memory ports used across the service tests.
// ---------------------------------------------------------------------------

type memUserRepo struct {
	mu     sync.Mutex
	seq    int
	byID   map[string]*domain.User
	findFn func(id string) error // optional failure injection
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	c := cloneUser(u)
	c.ID = fmt.Sprintf("%024x", r.seq)
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findFn != nil {
		if err := r.findFn(id); err != nil {
			return nil, err
		}
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == strings.ToLower(email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) List(_ context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	total := int64(len(out))
	start := (f.Page - 1) * f.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + f.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *memUserRepo) Update(_ context.Context, id string, upd ports.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Surname != nil {
		u.Surname = *upd.Surname
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Age != nil {
		age := *upd.Age
		u.Age = &age
	}
	if upd.Gender != nil {
		u.Gender = *upd.Gender
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Photo != nil {
		p := *upd.Photo
		u.Photo = &p
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

// seed stores an active user with the given role and password.
func (r *memUserRepo) seed(email string, role domain.Role, status domain.UserStatus, password string) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u, _ := r.Create(context.Background(), &domain.User{
		Name:         "Seed",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
	})
	return u
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]ports.Session // key user:sid
	err      error
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]ports.Session)}
}

func (m *memSessions) Save(_ context.Context, s ports.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sessions[s.UserID+":"+s.ID] = s
	return nil
}

func (m *memSessions) Get(_ context.Context, userID, sid string) (*ports.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[userID+":"+sid]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, userID, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID+":"+sid)
	return m.err
}

func (m *memSessions) DeleteAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for k := range m.sessions {
		if strings.HasPrefix(k, userID+":") {
			delete(m.sessions, k)
		}
	}
	return nil
}

func (m *memSessions) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.sessions {
		if strings.HasPrefix(k, userID+":") {
			n++
		}
	}
	return n
}

type memActions struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func newMemActions() *memActions {
	return &memActions{tokens: make(map[string]string)}
}

func (m *memActions) Put(_ context.Context, kind domain.TokenKind, userID, digest string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tokens[string(kind)+":"+userID] = digest
	return nil
}

func (m *memActions) Consume(_ context.Context, kind domain.TokenKind, userID, digest string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(kind) + ":" + userID
	if m.tokens[key] != digest {
		return false, nil
	}
	delete(m.tokens, key)
	return true, nil
}

type sentMail struct {
	kind    ports.NotificationKind
	userID  string
	payload ports.NotificationPayload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) Send(_ context.Context, kind ports.NotificationKind, u *domain.User, p ports.NotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: kind, userID: u.ID, payload: p})
}

func (n *recordingNotifier) last() (sentMail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentMail{}, false
	}
	return n.sent[len(n.sent)-1], true
}

// ---------------------------------------------------------------------------
// Fixture wiring every service against the in-memory ports.
// ---------------------------------------------------------------------------

type fixture struct {
	users     *memUserRepo
	sessions  *memSessions
	actions   *memActions
	notifier  *recordingNotifier
	codec     *token.Codec
	auth      *AuthService
	directory *UserService
	validator *AuthValidator
	clock     time.Time
}

func (f *fixture) now() time.Time { return f.clock }

// advance moves the shared clock used for issuing tokens.
func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func newFixture() *fixture {
	f := &fixture{
		users:    newMemUserRepo(),
		sessions: newMemSessions(),
		actions:  newMemActions(),
		notifier: &recordingNotifier{},
		clock:    time.Now(),
	}
	f.codec = token.NewCodec("test-secret", token.WithClock(f.now))
	log := zerolog.Nop()
	f.auth = NewAuthService(f.users, f.sessions, f.actions, f.codec, f.notifier, TokenTTLs{}, log)
	f.auth.cost = bcrypt.MinCost
	f.auth.now = f.now
	f.directory = NewUserService(f.users, f.sessions, log)
	f.validator = NewAuthValidator(f.codec, f.sessions, f.users, log)
	return f
}

func principalFor(t interface{ Fatalf(string, ...any) }, codec *token.Codec, raw string) domain.Principal {
	cl, err := codec.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return domain.Principal{UserID: cl.UserID, Role: cl.Role, SessionID: cl.SessionID, Token: raw}
}
