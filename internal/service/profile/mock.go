package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MockImageStore keeps uploaded images in memory for tests.
type MockImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	UploadErr error
	DeleteErr error
}

// NewMockImageStore creates an empty image store.
func NewMockImageStore() *MockImageStore {
	return &MockImageStore{objects: make(map[string][]byte)}
}

func (m *MockImageStore) Upload(_ context.Context, ownerID, contentType string, body io.Reader) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(contentType, "image/")
	url := fmt.Sprintf("https://images.test/%s/%s.%s", ownerID, uuid.NewString(), ext)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[url] = data
	return url, nil
}

func (m *MockImageStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, url)
	return nil
}

// Has reports whether url is currently stored.
func (m *MockImageStore) Has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[url]
	return ok
}

// Deleted returns every URL passed to Delete, in call order.
func (m *MockImageStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// MockService runs the real profile flows against in-memory backends. A
// forced error set with FailWith is returned by every call instead.
type MockService struct {
	*Manager
	Images *MockImageStore

	mu     sync.RWMutex
	forced error
}

// NewMockService creates a service over an empty in-memory store.
func NewMockService() *MockService {
	images := NewMockImageStore()
	return &MockService{
		Manager: NewManager(NewLocalStore(NewMemorySlot()), images),
		Images:  images,
	}
}

// FailWith makes every later call return err. Pass nil to recover.
func (m *MockService) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = err
}

func (m *MockService) failure() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forced
}

func (m *MockService) Create(ctx context.Context, userID string, params CreateParams) (*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.Create(ctx, userID, params)
}

func (m *MockService) Get(ctx context.Context, userID string) (*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.Get(ctx, userID)
}

func (m *MockService) GetByID(ctx context.Context, id string) (*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.GetByID(ctx, id)
}

func (m *MockService) GetByNickname(ctx context.Context, name string) (*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.GetByNickname(ctx, name)
}

func (m *MockService) List(ctx context.Context) ([]*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.List(ctx)
}

func (m *MockService) Update(ctx context.Context, userID string, params UpdateParams) (*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.Update(ctx, userID, params)
}

func (m *MockService) SetImage(ctx context.Context, userID, contentType string, body io.Reader) (*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.SetImage(ctx, userID, contentType, body)
}

func (m *MockService) ClearImage(ctx context.Context, userID string) (*Profile, error) {
	if err := m.failure(); err != nil {
		return nil, err
	}
	return m.Manager.ClearImage(ctx, userID)
}

func (m *MockService) Delete(ctx context.Context, userID string) error {
	if err := m.failure(); err != nil {
		return err
	}
	return m.Manager.Delete(ctx, userID)
}

func (m *MockService) IsNicknameAvailable(ctx context.Context, name, excludeUserID string) (bool, error) {
	if err := m.failure(); err != nil {
		return false, err
	}
	return m.Manager.IsNicknameAvailable(ctx, name, excludeUserID)
}

// ErrMockUnavailable is a ready-made storage outage for FailWith.
var ErrMockUnavailable = newStoreError(StoreErrorKindUnavailable, "mock", errors.New("connection refused"))

var (
	_ Service    = (*MockService)(nil)
	_ ImageStore = (*MockImageStore)(nil)
)
