package profile

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/janisto/engineer-profiles/internal/nickname"
)

// Field limits.
const (
	MaxNameLength        = 100
	MaxJobTitleLength    = 100
	MaxBioLength         = 500
	MaxSkills            = 20
	MaxSkillLength       = 50
	MaxYearsOfExperience = 100
	MaxSocialLinks       = 10
	MaxServiceLength     = 50
)

// normalizeFields trims surrounding whitespace from every free-text field.
func normalizeFields(p *Profile) {
	p.Nickname = strings.TrimSpace(p.Nickname)
	p.Name = strings.TrimSpace(p.Name)
	p.JobTitle = strings.TrimSpace(p.JobTitle)
	p.Bio = strings.TrimSpace(p.Bio)
	for i, s := range p.Skills {
		p.Skills[i] = strings.TrimSpace(s)
	}
	for i := range p.SocialLinks {
		p.SocialLinks[i].Service = strings.TrimSpace(p.SocialLinks[i].Service)
		p.SocialLinks[i].URL = strings.TrimSpace(p.SocialLinks[i].URL)
	}
}

// validateProfile returns the first rule p breaks as a *ValidationError.
func validateProfile(p *Profile) error {
	if err := validateNickname(p.Nickname); err != nil {
		return err
	}
	if err := requireLength("name", p.Name, MaxNameLength); err != nil {
		return err
	}
	if err := requireLength("jobTitle", p.JobTitle, MaxJobTitleLength); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.Bio) > MaxBioLength {
		return invalidField("bio", "must be at most %d characters", MaxBioLength)
	}
	if len(p.Skills) > MaxSkills {
		return invalidField("skills", "must contain at most %d entries", MaxSkills)
	}
	for i, s := range p.Skills {
		if err := requireLength(fmt.Sprintf("skills[%d]", i), s, MaxSkillLength); err != nil {
			return err
		}
	}
	if y := p.YearsOfExperience; y != nil && (*y < 0 || *y > MaxYearsOfExperience) {
		return invalidField("yearsOfExperience", "must be between 0 and %d", MaxYearsOfExperience)
	}
	if len(p.SocialLinks) > MaxSocialLinks {
		return invalidField("socialLinks", "must contain at most %d entries", MaxSocialLinks)
	}
	for i, l := range p.SocialLinks {
		field := fmt.Sprintf("socialLinks[%d]", i)
		if err := requireLength(field+".service", l.Service, MaxServiceLength); err != nil {
			return err
		}
		if !isWebURL(l.URL) {
			return invalidField(field+".url", "must be an absolute http:// or https:// URL")
		}
	}
	return nil
}

func validateNickname(n string) error {
	if n == "" {
		return nil
	}
	if r := nickname.Validate(n); !r.IsValid {
		return &ValidationError{Field: "nickname", Message: r.Error}
	}
	return nil
}

func requireLength(field, v string, maxLen int) error {
	n := utf8.RuneCountInString(v)
	if n == 0 {
		return invalidField(field, "is required")
	}
	if n > maxLen {
		return invalidField(field, "must be at most %d characters", maxLen)
	}
	return nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func invalidField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
