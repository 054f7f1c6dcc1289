package profile

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/janisto/engineer-profiles/internal/nickname"
	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/platform/timeutil"
)

// StorageKey is the slot key holding the local profile document.
const StorageKey = "engineer-profiles"

// LocalStore keeps every profile in one JSON object, keyed by profile ID,
// inside a Slot. A mutex serialises read-modify-write cycles within the
// process; separate processes sharing a slot are not coordinated.
type LocalStore struct {
	slot  Slot
	quota int
	now   func() time.Time

	mu sync.Mutex
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithQuota rejects writes whose encoded document exceeds n bytes.
func WithQuota(n int) LocalOption {
	return func(s *LocalStore) { s.quota = n }
}

// WithClock overrides the time source for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) LocalOption {
	return func(s *LocalStore) { s.now = now }
}

func NewLocalStore(slot Slot, opts ...LocalOption) *LocalStore {
	s := &LocalStore{slot: slot, now: timeutil.StoreNow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the document. A missing slot, malformed JSON or a non-object
// top level yields an empty store; entries that fail to decode or lack the
// owner, name or job title are dropped.
func (s *LocalStore) load(ctx context.Context, op string) (map[string]*Profile, error) {
	data, ok, err := s.slot.Get(ctx, StorageKey)
	if err != nil {
		return nil, s.fail(ctx, op, StoreErrorKindUnknown, err)
	}
	profiles := make(map[string]*Profile)
	if !ok {
		return profiles, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		applog.LogDebug(ctx, "local profile store unreadable, starting empty", zap.Int("bytes", len(data)))
		return profiles, nil
	}
	owners := make(map[string]string, len(raw))
	for id, entry := range raw {
		var p *Profile
		if err := json.Unmarshal(entry, &p); err != nil || !p.complete() {
			applog.LogDebug(ctx, "dropping unreadable profile entry", zap.String("profile_id", id))
			continue
		}
		p.ID = id
		profiles[id] = p.Clone()

		// Hand-edited documents can break uniqueness. Both entries are kept;
		// neither can be saved with that nickname until the other changes.
		if p.Nickname == "" {
			continue
		}
		key := nickname.Normalize(p.Nickname)
		if other, ok := owners[key]; ok {
			applog.LogDebug(ctx, "local profile store holds a duplicate nickname",
				zap.String("nickname", key), zap.String("profile_id", id), zap.String("other_profile_id", other))
			continue
		}
		owners[key] = id
	}
	return profiles, nil
}

// complete reports whether a decoded entry carries the fields every stored
// profile has. JSON null and {} decode without error but are not profiles.
func (p *Profile) complete() bool {
	return p != nil && p.UserID != "" && p.Name != "" && p.JobTitle != ""
}

func (s *LocalStore) persist(ctx context.Context, op string, profiles map[string]*Profile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return s.fail(ctx, op, StoreErrorKindUnknown, err)
	}
	if s.quota > 0 && len(data) > s.quota {
		return s.fail(ctx, op, StoreErrorKindQuotaExceeded, nil)
	}
	if err := s.slot.Put(ctx, StorageKey, data); err != nil {
		if errors.Is(err, ErrSlotFull) {
			return s.fail(ctx, op, StoreErrorKindQuotaExceeded, err)
		}
		return s.fail(ctx, op, StoreErrorKindUnknown, err)
	}
	return nil
}

func (s *LocalStore) fail(ctx context.Context, op string, kind StoreErrorKind, cause error) error {
	err := newStoreError(kind, op, cause)
	logStoreError(ctx, "local", err)
	return err
}

func (s *LocalStore) Save(ctx context.Context, p *Profile) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load(ctx, "save")
	if err != nil {
		return nil, err
	}

	stored := prepareForSave(p, profiles[p.ID], s.now())
	if stored.Nickname != "" {
		if other := findNickname(profiles, stored.Nickname, stored.ID); other != nil {
			return nil, s.fail(ctx, "save", StoreErrorKindDuplicate, nil)
		}
	}

	profiles[stored.ID] = stored
	if err := s.persist(ctx, "save", profiles); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *LocalStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	profiles, err := s.snapshot(ctx, "find_by_id")
	if err != nil {
		return nil, err
	}
	return profiles[id].Clone(), nil
}

func (s *LocalStore) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	profiles, err := s.snapshot(ctx, "find_by_user_id")
	if err != nil {
		return nil, err
	}
	var oldest *Profile
	for _, p := range profiles {
		if p.UserID != userID {
			continue
		}
		if oldest == nil || olderFirst(p, oldest) < 0 {
			oldest = p
		}
	}
	return oldest.Clone(), nil
}

func (s *LocalStore) FindByNickname(ctx context.Context, name string) (*Profile, error) {
	if name == "" {
		return nil, nil
	}
	profiles, err := s.snapshot(ctx, "find_by_nickname")
	if err != nil {
		return nil, err
	}
	return findNickname(profiles, name, "").Clone(), nil
}

func (s *LocalStore) IsNicknameAvailable(ctx context.Context, name, excludeUserID string) (bool, error) {
	if name == "" {
		return true, nil
	}
	profiles, err := s.snapshot(ctx, "is_nickname_available")
	if err != nil {
		return false, err
	}
	for _, p := range profiles {
		if excludeUserID != "" && p.UserID == excludeUserID {
			continue
		}
		if p.Nickname != "" && nickname.Equal(p.Nickname, name) {
			return false, nil
		}
	}
	return true, nil
}

func (s *LocalStore) CheckNicknameDuplicate(ctx context.Context, name, excludeProfileID string) (bool, error) {
	if name == "" {
		return false, nil
	}
	profiles, err := s.snapshot(ctx, "check_nickname_duplicate")
	if err != nil {
		return false, err
	}
	return findNickname(profiles, name, excludeProfileID) != nil, nil
}

func (s *LocalStore) FindAll(ctx context.Context) ([]*Profile, error) {
	profiles, err := s.snapshot(ctx, "find_all")
	if err != nil {
		return nil, err
	}
	out := make([]*Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, newestFirst)
	return out, nil
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.load(ctx, "delete")
	if err != nil {
		return err
	}
	if _, ok := profiles[id]; !ok {
		return s.fail(ctx, "delete", StoreErrorKindNotFound, nil)
	}
	delete(profiles, id)
	return s.persist(ctx, "delete", profiles)
}

func (s *LocalStore) Exists(ctx context.Context, id string) (bool, error) {
	profiles, err := s.snapshot(ctx, "exists")
	if err != nil {
		return false, err
	}
	_, ok := profiles[id]
	return ok, nil
}

func (s *LocalStore) snapshot(ctx context.Context, op string) (map[string]*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, op)
}

// prepareForSave builds the record to store: it assigns missing IDs, keeps
// the original CreatedAt on update and stamps UpdatedAt.
func prepareForSave(in, existing *Profile, now time.Time) *Profile {
	p := in.Clone()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.SocialLinks {
		if p.SocialLinks[i].ID == "" {
			p.SocialLinks[i].ID = uuid.NewString()
		}
	}
	switch {
	case existing != nil:
		p.CreatedAt = existing.CreatedAt
	case p.CreatedAt.IsZero():
		p.CreatedAt = now
	default:
		p.CreatedAt = timeutil.Storage(p.CreatedAt)
	}
	p.UpdatedAt = now
	return p
}

func findNickname(profiles map[string]*Profile, name, excludeID string) *Profile {
	for id, p := range profiles {
		if id == excludeID || p.Nickname == "" {
			continue
		}
		if nickname.Equal(p.Nickname, name) {
			return p
		}
	}
	return nil
}

func newestFirst(a, b *Profile) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func olderFirst(a, b *Profile) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

var _ Repository = (*LocalStore)(nil)
