package profile

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"
)

// SocialLink is one entry in a profile's ordered link list. ID stays stable
// across updates that keep the link.
type SocialLink struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	URL     string `json:"url"`
}

// Profile is the persisted aggregate. Nickname is optional; when set it is
// unique across all profiles after normalization.
type Profile struct {
	ID                string       `json:"id"`
	UserID            string       `json:"userId"`
	Nickname          string       `json:"nickname,omitempty"`
	Name              string       `json:"name"`
	JobTitle          string       `json:"jobTitle"`
	Bio               string       `json:"bio,omitempty"`
	ImageURL          string       `json:"imageUrl,omitempty"`
	Skills            []string     `json:"skills"`
	YearsOfExperience *int         `json:"yearsOfExperience,omitempty"`
	SocialLinks       []SocialLink `json:"socialLinks"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Skills = slices.Clone(p.Skills)
	c.SocialLinks = slices.Clone(p.SocialLinks)
	if p.YearsOfExperience != nil {
		y := *p.YearsOfExperience
		c.YearsOfExperience = &y
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	if c.SocialLinks == nil {
		c.SocialLinks = []SocialLink{}
	}
	return &c
}

// Repository is the storage capability shared by the local and Postgres
// backends. Lookups return nil, nil when nothing matches. Nickname arguments
// are compared after nickname.Normalize.
type Repository interface {
	// Save inserts or updates p by ID and returns the stored copy. The
	// insert-versus-update probe is not atomic with the write; nickname
	// uniqueness is enforced by the store and reported as ErrDuplicate.
	Save(ctx context.Context, p *Profile) (*Profile, error)
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindByUserID(ctx context.Context, userID string) (*Profile, error)
	FindByNickname(ctx context.Context, nickname string) (*Profile, error)
	// IsNicknameAvailable reports whether no profile other than those owned by
	// excludeUserID uses nickname. An empty excludeUserID excludes nobody.
	IsNicknameAvailable(ctx context.Context, nickname, excludeUserID string) (bool, error)
	// CheckNicknameDuplicate reports whether a profile other than
	// excludeProfileID uses nickname.
	CheckNicknameDuplicate(ctx context.Context, nickname, excludeProfileID string) (bool, error)
	// FindAll returns every profile, newest CreatedAt first, ties broken by ID.
	FindAll(ctx context.Context) ([]*Profile, error)
	// Delete removes the profile or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// ImageStore uploads and releases profile images.
type ImageStore interface {
	Upload(ctx context.Context, ownerID, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// CreateParams for creating a profile.
type CreateParams struct {
	Nickname          string
	Name              string
	JobTitle          string
	Bio               string
	Skills            []string
	YearsOfExperience *int
	SocialLinks       []SocialLink
}

// UpdateParams for a partial update. Nil fields are left unchanged. An empty
// Nickname clears it; ClearYearsOfExperience removes the value.
type UpdateParams struct {
	Nickname               *string
	Name                   *string
	JobTitle               *string
	Bio                    *string
	Skills                 *[]string
	YearsOfExperience      *int
	ClearYearsOfExperience bool
	SocialLinks            *[]SocialLink
}

// NicknameChanged reports whether applying u to p changes the nickname.
func (u UpdateParams) NicknameChanged(p *Profile) bool {
	return u.Nickname != nil && strings.TrimSpace(*u.Nickname) != p.Nickname
}

// Service defines the profile flows used by the HTTP layer. Every operation
// keyed by userID acts on that user's own profile.
type Service interface {
	Create(ctx context.Context, userID string, params CreateParams) (*Profile, error)
	Get(ctx context.Context, userID string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByNickname(ctx context.Context, nickname string) (*Profile, error)
	List(ctx context.Context) ([]*Profile, error)
	Update(ctx context.Context, userID string, params UpdateParams) (*Profile, error)
	SetImage(ctx context.Context, userID, contentType string, body io.Reader) (*Profile, error)
	ClearImage(ctx context.Context, userID string) (*Profile, error)
	Delete(ctx context.Context, userID string) error
	IsNicknameAvailable(ctx context.Context, nickname, excludeUserID string) (bool, error)
}
