package verification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-verify-api/internal/domain"
	redisinfra "github.com/go-verify-api/internal/infrastructure/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memRecords is an in-memory durable tier with the same conditional-consume
// semantics as the DynamoDB repo.
type memRecords struct {
	mu      sync.Mutex
	userIDs map[string]string // email -> user id
	recs    map[string]domain.VerificationRecord
}

func newMemRecords(emails ...string) *memRecords {
	m := &memRecords{userIDs: map[string]string{}, recs: map[string]domain.VerificationRecord{}}
	for i, e := range emails {
		m.userIDs[e] = fmt.Sprintf("u%d", i+1)
	}
	return m
}

func recKey(userID string, p domain.Purpose) string { return userID + "|" + p.CodeScope().String() }

func (m *memRecords) GetVerification(_ context.Context, email string, p domain.Purpose) (domain.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.userIDs[email]
	if !ok {
		return domain.VerificationRecord{}, domain.ErrNotFound
	}
	rec := m.recs[recKey(id, p)]
	rec.UserID = id
	return rec, nil
}

func (m *memRecords) SaveVerification(_ context.Context, userID string, p domain.Purpose, rec domain.VerificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UserID = userID
	m.recs[recKey(userID, p)] = rec
	return nil
}

func (m *memRecords) ClearVerification(_ context.Context, userID string, p domain.Purpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, recKey(userID, p))
	return nil
}

func (m *memRecords) ConsumeVerification(_ context.Context, userID string, p domain.Purpose, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recs[recKey(userID, p)].Code != code {
		return domain.ErrConflict
	}
	delete(m.recs, recKey(userID, p))
	return nil
}

func (m *memRecords) record(t *testing.T, email string, p domain.Purpose) domain.VerificationRecord {
	t.Helper()
	rec, err := m.GetVerification(context.Background(), email, p)
	require.NoError(t, err)
	return rec
}

// mockRecords is used where the durable tier has to fail.
type mockRecords struct{ mock.Mock }

func (m *mockRecords) GetVerification(ctx context.Context, email string, p domain.Purpose) (domain.VerificationRecord, error) {
	args := m.Called(ctx, email, p)
	rec, _ := args.Get(0).(domain.VerificationRecord)
	return rec, args.Error(1)
}
func (m *mockRecords) SaveVerification(ctx context.Context, userID string, p domain.Purpose, rec domain.VerificationRecord) error {
	return m.Called(ctx, userID, p, rec).Error(0)
}
func (m *mockRecords) ClearVerification(ctx context.Context, userID string, p domain.Purpose) error {
	return m.Called(ctx, userID, p).Error(0)
}
func (m *mockRecords) ConsumeVerification(ctx context.Context, userID string, p domain.Purpose, code string) error {
	return m.Called(ctx, userID, p, code).Error(0)
}

// harness wires the service to miniredis and a controllable clock.
type harness struct {
	svc     Service
	mr      *miniredis.Miniredis
	records *memRecords
	now     time.Time
}

func newHarness(t *testing.T, emails ...string) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	h := &harness{
		mr:      mr,
		records: newMemRecords(emails...),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(ServiceDeps{
		Codes:   redisinfra.NewCodeStore(client, DefaultCodeTTL),
		Records: h.records,
		CodeTTL: DefaultCodeTTL,
		Now:     func() time.Time { return h.now },
	})
	return h
}

// advance moves both the cache clock and the service clock.
func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
	h.mr.FastForward(d)
}

func (h *harness) cacheDown() { h.mr.SetError("ERR cache offline") }
func (h *harness) cacheUp()   { h.mr.SetError("") }

// indexLater creates an account whose email is not yet visible to lookups, the
// way a fresh item can be missing from a secondary index. The returned func
// makes it visible.
func (m *memRecords) indexLater(email, userID string) func() {
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.userIDs[email] = userID
	}
}
