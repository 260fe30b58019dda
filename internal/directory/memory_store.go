package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/geo"
	"github.com/raftaar/raftaar-backend/internal/models"
)

// MemoryStore keeps actors in process memory. Records are copied on the way
// in and out so callers only change stored state through Save or
// UpdateField.
type MemoryStore[A models.Account] struct {
	mu        sync.RWMutex
	records   map[uuid.UUID]A
	newRecord func() A
	clone     func(A) A
}

func NewMemoryStore[A models.Account](newRecord func() A, clone func(A) A) *MemoryStore[A] {
	return &MemoryStore[A]{
		records:   make(map[uuid.UUID]A),
		newRecord: newRecord,
		clone:     clone,
	}
}

func NewUserMemoryStore() *MemoryStore[*models.User] {
	return NewMemoryStore(
		func() *models.User { return &models.User{} },
		func(u *models.User) *models.User { c := *u; return &c },
	)
}

func NewCaptainMemoryStore() *MemoryStore[*models.Captain] {
	return NewMemoryStore(
		func() *models.Captain { return &models.Captain{} },
		func(c *models.Captain) *models.Captain { cp := *c; return &cp },
	)
}

func (m *MemoryStore[A]) New() A { return m.newRecord() }

func (m *MemoryStore[A]) Kind() models.ActorKind { return m.newRecord().Kind() }

func (m *MemoryStore[A]) find(match func(*models.Actor) bool) (A, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if match(rec.Base()) {
			return m.clone(rec), nil
		}
	}
	var zero A
	return zero, ErrNotFound
}

func (m *MemoryStore[A]) FindByID(_ context.Context, id uuid.UUID) (A, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		var zero A
		return zero, ErrNotFound
	}
	return m.clone(rec), nil
}

func (m *MemoryStore[A]) FindByEmail(_ context.Context, email string) (A, error) {
	return m.find(func(a *models.Actor) bool { return a.Email == email })
}

func (m *MemoryStore[A]) FindByMobile(_ context.Context, mobile string) (A, error) {
	return m.find(func(a *models.Actor) bool { return a.MobileNumber == mobile })
}

func (m *MemoryStore[A]) FindByEmailOrMobile(_ context.Context, email, mobile string) (A, error) {
	return m.find(func(a *models.Actor) bool { return a.Email == email || a.MobileNumber == mobile })
}

func (m *MemoryStore[A]) FindByChannel(_ context.Context, channelID string) (A, error) {
	return m.find(func(a *models.Actor) bool { return a.ChannelID != nil && *a.ChannelID == channelID })
}

func (m *MemoryStore[A]) Save(_ context.Context, a A) error {
	base := a.Base()
	if base.ID == uuid.Nil {
		return apperr.New(apperr.Validation, "actor id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rec := range m.records {
		if id == base.ID {
			continue
		}
		other := rec.Base()
		if other.Email == base.Email {
			return apperr.Duplicate("email")
		}
		if other.MobileNumber == base.MobileNumber {
			return apperr.Duplicate("mobileNumber")
		}
	}

	now := time.Now()
	if existing, ok := m.records[base.ID]; ok {
		base.CreatedAt = existing.Base().CreatedAt
	} else if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	m.records[base.ID] = m.clone(a)
	return nil
}

func (m *MemoryStore[A]) UpdateField(_ context.Context, id uuid.UUID, field Field, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	updated := m.clone(rec)
	base := updated.Base()

	switch field {
	case FieldChannelID:
		switch v := value.(type) {
		case nil:
			base.ChannelID = nil
		case string:
			base.ChannelID = &v
		default:
			return fmt.Errorf("directory: channel_id expects string, got %T", value)
		}
	case FieldLocation:
		switch v := value.(type) {
		case nil:
			base.Location = nil
		case geo.StoredPoint:
			base.Location = &v
		default:
			return fmt.Errorf("directory: location expects geo.StoredPoint, got %T", value)
		}
	default:
		return fmt.Errorf("directory: field %q cannot be updated in place", field)
	}

	base.UpdatedAt = time.Now()
	m.records[id] = updated
	return nil
}

func (m *MemoryStore[A]) ClearChannel(_ context.Context, channelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cleared := false
	for id, rec := range m.records {
		base := rec.Base()
		if base.ChannelID == nil || *base.ChannelID != channelID {
			continue
		}
		updated := m.clone(rec)
		updated.Base().ChannelID = nil
		m.records[id] = updated
		cleared = true
	}
	return cleared, nil
}

func (m *MemoryStore[A]) Near(_ context.Context, center geo.Point, maxMeters float64) ([]A, error) {
	type hit struct {
		rec      A
		distance float64
	}

	m.mu.RLock()
	hits := make([]hit, 0)
	for _, rec := range m.records {
		p, ok := rec.Base().Point()
		if !ok {
			continue
		}
		if d := geo.DistanceMeters(center, p); d <= maxMeters {
			hits = append(hits, hit{rec: m.clone(rec), distance: d})
		}
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	out := make([]A, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out, nil
}

type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]models.RefreshToken)}
}

func (s *MemoryTokenStore) Create(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	s.tokens[token.TokenHash] = *token
	return nil
}

func (s *MemoryTokenStore) FindActive(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil {
		return nil, ErrTokenNotFound
	}
	return &t, nil
}

func (s *MemoryTokenStore) Revoke(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
		s.tokens[tokenHash] = t
	}
	return nil
}
