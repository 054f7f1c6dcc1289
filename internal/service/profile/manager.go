package profile

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	applog "github.com/janisto/engineer-profiles/internal/platform/logging"
	"github.com/janisto/engineer-profiles/internal/service/image"
)

// Manager implements Service on top of a Repository and an ImageStore.
type Manager struct {
	repo   Repository
	images ImageStore
}

func NewManager(repo Repository, images ImageStore) *Manager {
	return &Manager{repo: repo, images: images}
}

// Create builds a profile for userID. A user may own one profile; the check
// is made here rather than by the store, so two concurrent creates can both
// succeed.
func (m *Manager) Create(ctx context.Context, userID string, params CreateParams) (_ *Profile, err error) {
	var profileID string
	defer func() { m.audit(ctx, "create", userID, profileID, err) }()

	existing, err := m.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		profileID = existing.ID
		return nil, ErrAlreadyExists
	}

	candidate := (&Profile{
		UserID:            userID,
		Nickname:          params.Nickname,
		Name:              params.Name,
		JobTitle:          params.JobTitle,
		Bio:               params.Bio,
		Skills:            params.Skills,
		YearsOfExperience: params.YearsOfExperience,
		SocialLinks:       params.SocialLinks,
	}).Clone()
	for i := range candidate.SocialLinks {
		candidate.SocialLinks[i].ID = ""
	}
	normalizeFields(candidate)
	if err := validateProfile(candidate); err != nil {
		return nil, err
	}

	if candidate.Nickname != "" {
		available, err := m.repo.IsNicknameAvailable(ctx, candidate.Nickname, userID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, ErrDuplicate
		}
	}

	saved, err := m.repo.Save(ctx, candidate)
	if err != nil {
		return nil, err
	}
	profileID = saved.ID
	return saved, nil
}

func (m *Manager) Get(ctx context.Context, userID string) (*Profile, error) {
	return m.own(ctx, userID)
}

func (m *Manager) GetByID(ctx context.Context, id string) (*Profile, error) {
	p, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *Manager) GetByNickname(ctx context.Context, name string) (*Profile, error) {
	if name == "" {
		return nil, ErrNotFound
	}
	p, err := m.repo.FindByNickname(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *Manager) List(ctx context.Context) ([]*Profile, error) {
	return m.repo.FindAll(ctx)
}

// Update applies params to the caller's profile. Availability is queried
// only when the nickname changes to a non-empty value.
func (m *Manager) Update(ctx context.Context, userID string, params UpdateParams) (_ *Profile, err error) {
	var profileID string
	defer func() { m.audit(ctx, "update", userID, profileID, err) }()

	current, err := m.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	profileID = current.ID

	next := applyUpdate(current, params)
	normalizeFields(next)
	if err := validateProfile(next); err != nil {
		return nil, err
	}

	if next.Nickname != "" && next.Nickname != current.Nickname {
		taken, err := m.repo.CheckNicknameDuplicate(ctx, next.Nickname, current.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicate
		}
	}

	return m.repo.Save(ctx, next)
}

// SetImage uploads a new image and points the profile at it. The previous
// image is released after the profile is saved; on a failed save the new
// upload is released instead.
func (m *Manager) SetImage(ctx context.Context, userID, contentType string, body io.Reader) (_ *Profile, err error) {
	var profileID string
	defer func() { m.audit(ctx, "set_image", userID, profileID, err) }()

	current, err := m.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	profileID = current.ID

	url, err := m.images.Upload(ctx, current.ID, contentType, body)
	if err != nil {
		// Rejected uploads are client errors; backend failures are logged with their cause.
		if !image.IsRejected(err) && !errors.Is(err, context.Canceled) {
			applog.LogError(ctx, "profile image upload failed", err, zap.String("profile_id", current.ID))
		}
		return nil, err
	}

	next := current.Clone()
	next.ImageURL = url
	saved, err := m.repo.Save(ctx, next)
	if err != nil {
		m.releaseImage(ctx, url)
		return nil, err
	}
	if current.ImageURL != url {
		m.releaseImage(ctx, current.ImageURL)
	}
	return saved, nil
}

func (m *Manager) ClearImage(ctx context.Context, userID string) (_ *Profile, err error) {
	var profileID string
	defer func() { m.audit(ctx, "clear_image", userID, profileID, err) }()

	current, err := m.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	profileID = current.ID
	if current.ImageURL == "" {
		return current, nil
	}

	next := current.Clone()
	next.ImageURL = ""
	saved, err := m.repo.Save(ctx, next)
	if err != nil {
		return nil, err
	}
	m.releaseImage(ctx, current.ImageURL)
	return saved, nil
}

// Delete removes the caller's profile and releases its image.
func (m *Manager) Delete(ctx context.Context, userID string) (err error) {
	var profileID string
	defer func() { m.audit(ctx, "delete", userID, profileID, err) }()

	current, err := m.own(ctx, userID)
	if err != nil {
		return err
	}
	profileID = current.ID

	if err := m.repo.Delete(ctx, current.ID); err != nil {
		return err
	}
	m.releaseImage(ctx, current.ImageURL)
	return nil
}

// IsNicknameAvailable validates name before asking the store.
func (m *Manager) IsNicknameAvailable(ctx context.Context, name, excludeUserID string) (bool, error) {
	if name == "" {
		return false, &ValidationError{Field: "nickname", Message: "is required"}
	}
	if err := validateNickname(name); err != nil {
		return false, err
	}
	return m.repo.IsNicknameAvailable(ctx, name, excludeUserID)
}

func (m *Manager) own(ctx context.Context, userID string) (*Profile, error) {
	p, err := m.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *Manager) releaseImage(ctx context.Context, url string) {
	if url == "" || m.images == nil {
		return
	}
	if err := m.images.Delete(ctx, url); err != nil {
		applog.LogWarn(ctx, "failed to release profile image", zap.String("url", url), zap.Error(err))
	}
}

func (m *Manager) audit(ctx context.Context, action, userID, profileID string, err error) {
	applog.Audit(ctx, applog.AuditEvent{
		Action:       action,
		Actor:        userID,
		ResourceType: "profile",
		ResourceID:   profileID,
		Err:          err,
		Category:     categorizeError,
	})
}

// applyUpdate returns a copy of p with the non-nil fields of u applied.
func applyUpdate(p *Profile, u UpdateParams) *Profile {
	next := p.Clone()
	if u.Nickname != nil {
		next.Nickname = *u.Nickname
	}
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.JobTitle != nil {
		next.JobTitle = *u.JobTitle
	}
	if u.Bio != nil {
		next.Bio = *u.Bio
	}
	if u.Skills != nil {
		next.Skills = append([]string{}, (*u.Skills)...)
	}
	switch {
	case u.ClearYearsOfExperience:
		next.YearsOfExperience = nil
	case u.YearsOfExperience != nil:
		y := *u.YearsOfExperience
		next.YearsOfExperience = &y
	}
	if u.SocialLinks != nil {
		next.SocialLinks = carryLinkIDs(p.SocialLinks, *u.SocialLinks)
	}
	return next
}

// carryLinkIDs keeps the ID of every incoming link that names an existing
// link, either by ID or by identical service and URL. Unknown IDs are
// cleared so the store assigns fresh ones.
func carryLinkIDs(existing, incoming []SocialLink) []SocialLink {
	known := make(map[string]bool, len(existing))
	for _, l := range existing {
		known[l.ID] = true
	}
	used := make(map[string]bool, len(incoming))
	out := make([]SocialLink, len(incoming))
	for i, l := range incoming {
		if l.ID != "" && known[l.ID] && !used[l.ID] {
			used[l.ID] = true
			out[i] = l
			continue
		}
		l.ID = ""
		out[i] = l
	}
	for i := range out {
		if out[i].ID != "" {
			continue
		}
		for _, e := range existing {
			if !used[e.ID] && e.Service == strings.TrimSpace(out[i].Service) && e.URL == strings.TrimSpace(out[i].URL) {
				used[e.ID] = true
				out[i].ID = e.ID
				break
			}
		}
	}
	return out
}

var _ Service = (*Manager)(nil)
