// Package profiles serves the public, read-only view of all profiles.
package profiles

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/engineer-profiles/internal/http/v1/profile"
	"github.com/janisto/engineer-profiles/internal/platform/pagination"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

const cursorKind = "profile"

// Register wires public profile routes into the provided API router.
func Register(api huma.API, svc profilesvc.Service, prefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/profiles",
		Summary:     "List profiles with cursor-based pagination",
		Description: "Returns profiles newest first. Use the cursor from the Link header to navigate between pages.",
		Tags:        []string{"Profiles"},
	}, func(ctx context.Context, input *ProfilesListInput) (*ProfilesListOutput, error) {
		cursor, err := pagination.DecodeCursor(input.Cursor, cursorKind)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid cursor format")
		}

		all, err := svc.List(ctx)
		if err != nil {
			return nil, profile.MapServiceError(err)
		}
		filtered := filterBySkill(all, input.Skill)

		query := url.Values{}
		if input.Skill != "" {
			query.Set("skill", input.Skill)
		}

		page := pagination.Paginate(filtered, pagination.Window[*profilesvc.Profile]{
			Cursor: cursor,
			Limit:  input.PageSize(),
			ID:     func(p *profilesvc.Profile) string { return p.ID },
			Path:   prefix + "/profiles",
			Query:  query,
		})

		items := make([]profile.Profile, len(page.Items))
		for i, p := range page.Items {
			items[i] = profile.ToPublicProfile(p)
		}
		return &ProfilesListOutput{
			Link: page.Link,
			Body: ListData{
				Items: items,
				Total: page.Total,
			},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile-by-nickname",
		Method:      http.MethodGet,
		Path:        "/profiles/{nickname}",
		Summary:     "Get a profile by nickname",
		Description: "Returns the public profile behind a share link.",
		Tags:        []string{"Profiles"},
	}, func(ctx context.Context, input *ProfileByNicknameInput) (*ProfileByNicknameOutput, error) {
		p, err := svc.GetByNickname(ctx, input.Nickname)
		if err != nil {
			return nil, profile.MapServiceError(err)
		}
		return &ProfileByNicknameOutput{Body: profile.ToPublicProfile(p)}, nil
	})
}

func filterBySkill(items []*profilesvc.Profile, skill string) []*profilesvc.Profile {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return items
	}
	return slices.DeleteFunc(slices.Clone(items), func(p *profilesvc.Profile) bool {
		return !slices.ContainsFunc(p.Skills, func(s string) bool {
			return strings.EqualFold(s, skill)
		})
	})
}
