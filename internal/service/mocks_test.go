package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mundocerca/backend/internal/auth"
	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/models"
	"github.com/mundocerca/backend/internal/utils"
)

// fakeClock is a manually advanced utils.Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockPasswordResetRepository keeps records in memory and applies every
// conditional update under one lock, the way a row update would.
type MockPasswordResetRepository struct {
	mu      sync.Mutex
	records map[string]*models.PasswordReset

	// Err, when set, is returned by every method
	Err error
}

func NewMockPasswordResetRepository() *MockPasswordResetRepository {
	return &MockPasswordResetRepository{records: make(map[string]*models.PasswordReset)}
}

// byEmail returns the email's records newest first. Callers hold mu.
func (m *MockPasswordResetRepository) byEmail(email string) []*models.PasswordReset {
	var out []*models.PasswordReset
	for _, r := range m.records {
		if r.Email == email {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MockPasswordResetRepository) CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	count := 0
	for _, r := range m.records {
		if r.Email == email && r.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockPasswordResetRepository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	count := 0
	for _, r := range m.records {
		if r.IPAddress == ip && r.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockPasswordResetRepository) GetLatestByEmail(ctx context.Context, email string) (*models.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	records := m.byEmail(email)
	if len(records) == 0 {
		return nil, utils.NewNotFoundError("PasswordReset", "latest")
	}
	copied := *records[0]
	return &copied, nil
}

func (m *MockPasswordResetRepository) CreateAndInvalidatePrevious(ctx context.Context, record *models.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, r := range m.records {
		if r.Email == record.Email && !r.Used {
			r.Used = true
			r.UpdatedAt = record.CreatedAt
		}
	}
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *MockPasswordResetRepository) GetActiveOTPByEmail(ctx context.Context, email string, now time.Time) (*models.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.byEmail(email) {
		if r.OTPActive(now) {
			copied := *r
			return &copied, nil
		}
	}
	return nil, utils.NewNotFoundError("PasswordReset", "active code")
}

func (m *MockPasswordResetRepository) MarkUsed(ctx context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if r, ok := m.records[id]; ok {
		r.Used = true
		r.UpdatedAt = now
	}
	return nil
}

func (m *MockPasswordResetRepository) RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, now time.Time) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, false, m.Err
	}
	r, ok := m.records[id]
	if !ok || r.Used || r.OTPVerifiedAt != nil {
		return 0, false, utils.NewNotFoundError("PasswordReset", id)
	}
	r.Attempts++
	if r.Attempts >= maxAttempts {
		r.Used = true
	}
	r.UpdatedAt = now
	return r.Attempts, r.Used, nil
}

func (m *MockPasswordResetRepository) IssueResetToken(ctx context.Context, id, tokenHash string, tokenExpiresAt, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	r, ok := m.records[id]
	if !ok || !r.OTPActive(now) {
		return false, nil
	}
	hash := tokenHash
	expiry := tokenExpiresAt
	verified := now
	r.ResetTokenHash = &hash
	r.ResetTokenExpiresAt = &expiry
	r.OTPVerifiedAt = &verified
	r.UpdatedAt = now
	return true, nil
}

func (m *MockPasswordResetRepository) GetLiveTokenByEmail(ctx context.Context, email string, now time.Time) (*models.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.byEmail(email) {
		if r.TokenLive(now) {
			copied := *r
			return &copied, nil
		}
	}
	return nil, utils.NewNotFoundError("PasswordReset", "live token")
}

func (m *MockPasswordResetRepository) ConsumeToken(ctx context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	r, ok := m.records[id]
	if !ok || !r.TokenLive(now) {
		return false, nil
	}
	r.Used = true
	r.UpdatedAt = now
	return true, nil
}

func (m *MockPasswordResetRepository) InvalidateAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for _, r := range m.records {
		if r.UserID == userID && !r.Used {
			r.Used = true
			n++
		}
	}
	return n, nil
}

func (m *MockPasswordResetRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for id, r := range m.records {
		tokenDone := r.ResetTokenExpiresAt == nil || r.ResetTokenExpiresAt.Before(cutoff)
		if r.ExpiresAt.Before(cutoff) && tokenDone {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// unusedCount returns how many records of email still have used=false
func (m *MockPasswordResetRepository) unusedCount(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.records {
		if r.Email == email && !r.Used {
			count++
		}
	}
	return count
}

// get returns a copy of a stored record
func (m *MockPasswordResetRepository) get(id string) models.PasswordReset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.records[id]
}

// latest returns a copy of the newest record for email
func (m *MockPasswordResetRepository) latest(email string) models.PasswordReset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byEmail(email)[0]
}

func (m *MockPasswordResetRepository) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MockUserRepository is an in-memory user directory
type MockUserRepository struct {
	mu           sync.Mutex
	usersByEmail map[string]*models.User
	Err          error
	UpdateErr    error
}

func NewMockUserRepository(users ...*models.User) *MockUserRepository {
	m := &MockUserRepository{usersByEmail: make(map[string]*models.User)}
	for _, u := range users {
		m.usersByEmail[u.Email] = u
	}
	return m
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, utils.NewNotFoundError("User", email)
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for _, u := range m.usersByEmail {
		if u.ID == id {
			u.PasswordHash = passwordHash
			u.UpdatedAt = now
			return nil
		}
	}
	return utils.NewNotFoundError("User", id)
}

func (m *MockUserRepository) passwordHash(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usersByEmail[email].PasswordHash
}

// MockAuditRepository collects audit events
type MockAuditRepository struct {
	mu     sync.Mutex
	events []*models.SecurityAuditEvent
	Err    error
}

func (m *MockAuditRepository) Create(ctx context.Context, event *models.SecurityAuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockAuditRepository) Events() []*models.SecurityAuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.SecurityAuditEvent(nil), m.events...)
}

// MockMailer records dispatched codes synchronously
type MockMailer struct {
	mu    sync.Mutex
	codes map[string][]string
}

func NewMockMailer() *MockMailer {
	return &MockMailer{codes: make(map[string][]string)}
}

func (m *MockMailer) DispatchResetCode(toEmail, code string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[toEmail] = append(m.codes[toEmail], code)
}

func (m *MockMailer) LastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.codes[email]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

func (m *MockMailer) Count(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes[email])
}

// MockEmailSender implements EmailSender
type MockEmailSender struct {
	mu    sync.Mutex
	sent  []string
	Err   error
	Delay time.Duration
}

func (m *MockEmailSender) SendPasswordResetCode(ctx context.Context, toEmail, code string, ttl time.Duration) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, toEmail+":"+code)
	return nil
}

func (m *MockEmailSender) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// failingHasher fails every operation
type failingHasher struct{}

func (failingHasher) Hash(string) (string, error)         { return "", errors.New("hasher unavailable") }
func (failingHasher) Verify(string, string) (bool, error) { return false, errors.New("hasher unavailable") }

func testResetSettings() *config.PasswordResetSettings {
	return &config.PasswordResetSettings{
		OTPLength:          6,
		OTPTTLMinutes:      10,
		TokenTTLMinutes:    5,
		CooldownSeconds:    60,
		MaxAttempts:        5,
		MaxPerEmailPerHour: 3,
		MaxPerIPPerHour:    10,
		MinResponseTime:    400 * time.Millisecond,
		ResponseJitter:     100 * time.Millisecond,
		Retention:          24 * time.Hour,
	}
}

func testHasher() auth.SecretHasher {
	return auth.NewArgon2Hasher(&config.HashSettings{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}
