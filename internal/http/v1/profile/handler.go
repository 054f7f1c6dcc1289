package profile

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/engineer-profiles/internal/platform/auth"
	"github.com/janisto/engineer-profiles/internal/platform/ratelimit"
	"github.com/janisto/engineer-profiles/internal/platform/retry"
	"github.com/janisto/engineer-profiles/internal/service/image"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

// Register registers the endpoints acting on the caller's own profile.
// nicknameLimiter, when set, throttles updates that change the nickname.
func Register(api huma.API, svc profilesvc.Service, prefix string, nicknameLimiter ratelimit.Limiter) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-profile",
		Method:        http.MethodPost,
		Path:          "/profile",
		Summary:       "Create user profile",
		Description:   "Creates the authenticated user's profile. Each user owns at most one profile.",
		Tags:          []string{"Profile"},
		DefaultStatus: http.StatusCreated,
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *ProfileCreateInput) (*ProfileCreateOutput, error) {
		user := auth.UserFromContext(ctx)

		profile, err := svc.Create(ctx, user.UID, profilesvc.CreateParams{
			Nickname:          input.Body.Nickname,
			Name:              input.Body.Name,
			JobTitle:          input.Body.JobTitle,
			Bio:               input.Body.Bio,
			Skills:            input.Body.Skills,
			YearsOfExperience: input.Body.YearsOfExperience,
			SocialLinks:       toServiceLinks(input.Body.SocialLinks),
		})
		if err != nil {
			return nil, MapServiceError(err)
		}
		return &ProfileCreateOutput{
			Location: prefix + "/profile",
			Body:     ToHTTPProfile(profile),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/profile",
		Summary:     "Get current user's profile",
		Description: "Retrieves the profile for the authenticated user.",
		Tags:        []string{"Profile"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, _ *ProfileGetInput) (*ProfileGetOutput, error) {
		user := auth.UserFromContext(ctx)

		profile, err := svc.Get(ctx, user.UID)
		if err != nil {
			return nil, MapServiceError(err)
		}
		return &ProfileGetOutput{
			Body: ToHTTPProfile(profile),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/profile",
		Summary:     "Update current user's profile",
		Description: "Updates fields on the authenticated user's profile. Only provided fields are updated. " +
			"Nickname changes are rate limited per user.",
		Tags: []string{"Profile"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *ProfileUpdateInput) (*ProfileUpdateOutput, error) {
		user := auth.UserFromContext(ctx)
		if !hasProfileUpdateFields(input) {
			return nil, huma.Error422UnprocessableEntity("at least one field must be provided")
		}

		params := toUpdateParams(input)
		if params.Nickname != nil && nicknameLimiter != nil {
			current, err := svc.Get(ctx, user.UID)
			if err != nil {
				return nil, MapServiceError(err)
			}
			if params.NicknameChanged(current) {
				if err := ratelimit.Check(ctx, nicknameLimiter, "user:"+user.UID, "update-nickname"); err != nil {
					return nil, err
				}
			}
		}

		profile, err := svc.Update(ctx, user.UID, params)
		if err != nil {
			return nil, MapServiceError(err)
		}
		return &ProfileUpdateOutput{
			Body: ToHTTPProfile(profile),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-profile",
		Method:        http.MethodDelete,
		Path:          "/profile",
		Summary:       "Delete current user's profile",
		Description:   "Permanently deletes the authenticated user's profile and its image. The nickname becomes available again.",
		Tags:          []string{"Profile"},
		DefaultStatus: http.StatusNoContent,
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, _ *ProfileDeleteInput) (*struct{}, error) {
		user := auth.UserFromContext(ctx)

		if err := svc.Delete(ctx, user.UID); err != nil {
			return nil, MapServiceError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "upload-profile-image",
		Method:       http.MethodPut,
		Path:         "/profile/image",
		Summary:      "Upload profile image",
		Description:  "Replaces the profile image. Send the raw png, jpeg, webp or gif bytes, at most 5 MiB.",
		Tags:         []string{"Profile"},
		MaxBodyBytes: image.MaxSize + 1,
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *ProfileImageInput) (*ProfileImageOutput, error) {
		user := auth.UserFromContext(ctx)

		profile, err := svc.SetImage(ctx, user.UID, input.ContentType, bytes.NewReader(input.RawBody))
		if err != nil {
			return nil, MapServiceError(err)
		}
		return &ProfileImageOutput{Body: ToHTTPProfile(profile)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-profile-image",
		Method:      http.MethodDelete,
		Path:        "/profile/image",
		Summary:     "Remove profile image",
		Description: "Removes the profile image. Succeeds when no image is set.",
		Tags:        []string{"Profile"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, _ *ProfileImageDeleteInput) (*ProfileImageOutput, error) {
		user := auth.UserFromContext(ctx)

		profile, err := svc.ClearImage(ctx, user.UID)
		if err != nil {
			return nil, MapServiceError(err)
		}
		return &ProfileImageOutput{Body: ToHTTPProfile(profile)}, nil
	})
}

func hasProfileUpdateFields(input *ProfileUpdateInput) bool {
	b := input.Body
	return b.Nickname != nil ||
		b.Name != nil ||
		b.JobTitle != nil ||
		b.Bio != nil ||
		b.Skills != nil ||
		b.YearsOfExperience != nil ||
		b.ClearYearsOfExperience ||
		b.SocialLinks != nil
}

func toUpdateParams(input *ProfileUpdateInput) profilesvc.UpdateParams {
	b := input.Body
	params := profilesvc.UpdateParams{
		Nickname:               b.Nickname,
		Name:                   b.Name,
		JobTitle:               b.JobTitle,
		Bio:                    b.Bio,
		YearsOfExperience:      b.YearsOfExperience,
		ClearYearsOfExperience: b.ClearYearsOfExperience,
	}
	if b.Skills != nil {
		skills := b.Skills
		params.Skills = &skills
	}
	if b.SocialLinks != nil {
		links := toServiceLinks(b.SocialLinks)
		params.SocialLinks = &links
	}
	return params
}

func toServiceLinks(in []SocialLinkInput) []profilesvc.SocialLink {
	out := make([]profilesvc.SocialLink, len(in))
	for i, l := range in {
		out[i] = profilesvc.SocialLink{ID: l.ID, Service: l.Service, URL: l.URL}
	}
	return out
}

// MapServiceError converts profile and image errors to problem responses.
// Validation failures point into the request body.
func MapServiceError(err error) error {
	return MapServiceErrorIn("body", err)
}

// MapServiceErrorIn is MapServiceError for operations whose validated input
// sits in another request part, such as "path" or "query".
func MapServiceErrorIn(in string, err error) error {
	var verr *profilesvc.ValidationError
	switch {
	case errors.As(err, &verr):
		return huma.Error422UnprocessableEntity("validation failed", &huma.ErrorDetail{
			Location: in + "." + verr.Field,
			Message:  verr.Message,
		})
	case errors.Is(err, profilesvc.ErrDuplicate):
		return huma.Error409Conflict("this nickname is already in use")
	case errors.Is(err, profilesvc.ErrAlreadyExists):
		return huma.Error409Conflict("profile already exists")
	case errors.Is(err, profilesvc.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	case errors.Is(err, image.ErrTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, image.ErrUnsupportedType):
		return huma.NewError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, image.ErrEmpty):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, profilesvc.ErrQuotaExceeded):
		return huma.NewError(http.StatusInsufficientStorage, "profile storage is full")
	case errors.Is(err, profilesvc.ErrUnavailable), errors.Is(err, retry.ErrTimeout):
		return huma.Error503ServiceUnavailable("profile storage is temporarily unavailable")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}
