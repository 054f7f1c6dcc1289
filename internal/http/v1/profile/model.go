package profile

import (
	"github.com/janisto/engineer-profiles/internal/platform/timeutil"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

// SocialLink is one entry of a profile's link list.
type SocialLink struct {
	ID      string `json:"id"      doc:"Stable link identifier"  example:"9b2f4c1e-8d8e-4f62-9a57-2d1f0f6b1c3a"`
	Service string `json:"service" doc:"Service name"            example:"GitHub"`
	URL     string `json:"url"     doc:"Link target"             example:"https://github.com/johndoe"`
}

// Profile represents an engineer profile response.
type Profile struct {
	ID                string        `json:"id"                          doc:"Unique identifier"        example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID            string        `json:"userId,omitempty"            doc:"Owning user, only shown to the owner" example:"test-user-123"`
	Nickname          string        `json:"nickname,omitempty"          doc:"Public nickname"          example:"john-doe"`
	Name              string        `json:"name"                        doc:"Display name"             example:"John Doe"`
	JobTitle          string        `json:"jobTitle"                    doc:"Job title"                example:"Backend Engineer"`
	Bio               string        `json:"bio,omitempty"               doc:"Short biography"          example:"Go and distributed systems."`
	ImageURL          string        `json:"imageUrl,omitempty"          doc:"Profile image URL"        example:"https://storage.googleapis.com/bucket/u/1.png"`
	Skills            []string      `json:"skills"                      doc:"Skills in display order"`
	YearsOfExperience *int          `json:"yearsOfExperience,omitempty" doc:"Years of experience"      example:"7"`
	SocialLinks       []SocialLink  `json:"socialLinks"                 doc:"Social links in display order"`
	CreatedAt         timeutil.Time `json:"createdAt"                   doc:"Creation timestamp"       example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt         timeutil.Time `json:"updatedAt"                   doc:"Last update timestamp"    example:"2024-01-15T10:30:00.000Z"`
}

// ToHTTPProfile converts a stored profile for its owner.
func ToHTTPProfile(p *profilesvc.Profile) Profile {
	links := make([]SocialLink, len(p.SocialLinks))
	for i, l := range p.SocialLinks {
		links[i] = SocialLink{ID: l.ID, Service: l.Service, URL: l.URL}
	}
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return Profile{
		ID:                p.ID,
		UserID:            p.UserID,
		Nickname:          p.Nickname,
		Name:              p.Name,
		JobTitle:          p.JobTitle,
		Bio:               p.Bio,
		ImageURL:          p.ImageURL,
		Skills:            skills,
		YearsOfExperience: p.YearsOfExperience,
		SocialLinks:       links,
		CreatedAt:         timeutil.NewTime(p.CreatedAt),
		UpdatedAt:         timeutil.NewTime(p.UpdatedAt),
	}
}

// ToPublicProfile converts a stored profile for anyone else.
func ToPublicProfile(p *profilesvc.Profile) Profile {
	out := ToHTTPProfile(p)
	out.UserID = ""
	return out
}
