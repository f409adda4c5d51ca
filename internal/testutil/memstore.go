// Package testutil: in-memory замены хранилища PostgreSQL и отправщика писем для тестов.
package testutil

import (
	"context"
	"elearning/internal/models"
	"elearning/internal/repository"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore повторяет семантику repository.UserRepository, включая её sentinel-ошибки.
type MemStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	now   func() time.Time

	// PingErr возвращается из Ping, если задан.
	PingErr error
}

func NewMemStore() *MemStore {
	return &MemStore{users: make(map[uuid.UUID]*models.User), now: time.Now}
}

func clone(u *models.User) *models.User {
	c := *u
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		c.ResetTokenHash = &h
	}
	if u.ResetTokenExpiry != nil {
		e := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &e
	}
	return &c
}

func (s *MemStore) byEmail(email string) *models.User {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *MemStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmail(user.Email) != nil {
		return repository.ErrDuplicateEmail
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = clone(user)
	return nil
}

func (s *MemStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byEmail(email)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (s *MemStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (s *MemStore) GetAllUsersPaginated(_ context.Context, limit, offset int) ([]*models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, clone(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := len(all)
	if offset >= total {
		return []*models.User{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (s *MemStore) UpdateUserFields(_ context.Context, id uuid.UUID, in *models.UpdateUserRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	u.UpdatedAt = s.now()
	return clone(u), nil
}

func (s *MemStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now()
	return nil
}

func (s *MemStore) DeleteUserByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemStore) CountUsers(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *MemStore) Ping(context.Context) error {
	return s.PingErr
}

func (s *MemStore) SetResetToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiry = &expiresAt
	return nil
}

func (s *MemStore) ClearResetToken(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetTokenHash = nil
	u.ResetTokenExpiry = nil
	return nil
}

func (s *MemStore) GetUserByValidResetHash(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if validReset(u, tokenHash, now) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemStore) ConsumeResetToken(_ context.Context, userID uuid.UUID, tokenHash, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || !validReset(u, tokenHash, now) {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpiry = nil
	u.UpdatedAt = now
	return nil
}

func validReset(u *models.User, tokenHash string, now time.Time) bool {
	return u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
		u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
}

// Mail: одно перехваченное письмо.
type Mail struct {
	To, Subject, Body string
}

// MailRecorder запоминает отправленные письма. Если задан Fail, Send возвращает его.
type MailRecorder struct {
	mu   sync.Mutex
	Sent []Mail
	Fail error
}

var ErrMailDown = errors.New("smtp: connection refused")

func (m *MailRecorder) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Sent = append(m.Sent, Mail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MailRecorder) Last() (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return Mail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// ResetSecret достаёт сырой секрет из ссылки в последнем письме.
func (m *MailRecorder) ResetSecret() string {
	last, ok := m.Last()
	if !ok {
		return ""
	}
	const marker = "/resetpassword/"
	i := strings.Index(last.Body, marker)
	if i < 0 {
		return ""
	}
	rest := last.Body[i+len(marker):]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
