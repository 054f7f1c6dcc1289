// Package nicknames exposes nickname validation and availability checks.
package nicknames

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/engineer-profiles/internal/availability"
	"github.com/janisto/engineer-profiles/internal/http/v1/profile"
	"github.com/janisto/engineer-profiles/internal/nickname"
	"github.com/janisto/engineer-profiles/internal/platform/auth"
	profilesvc "github.com/janisto/engineer-profiles/internal/service/profile"
)

// Register wires the nickname check routes.
func Register(api huma.API, svc profilesvc.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "check-nickname-availability",
		Method:      http.MethodGet,
		Path:        "/nicknames/{nickname}/availability",
		Summary:     "Check nickname availability",
		Description: "Validates the nickname and reports whether another profile already uses it. Comparison is case-insensitive.",
		Tags:        []string{"Nicknames"},
		Metadata:    map[string]any{auth.OptionalAuthKey: true},
	}, func(ctx context.Context, input *AvailabilityInput) (*AvailabilityOutput, error) {
		exclude := input.ExcludeUserID
		if user := auth.UserFromContext(ctx); exclude == "" && user != nil {
			exclude = user.UID
		}

		available, err := svc.IsNicknameAvailable(ctx, input.Nickname, exclude)
		if err != nil {
			return nil, profile.MapServiceErrorIn("path", err)
		}
		data := AvailabilityData{Nickname: input.Nickname, Available: available}
		if !available {
			data.Message = availability.MessageTaken
		}
		return &AvailabilityOutput{Body: data}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-nickname",
		Method:      http.MethodGet,
		Path:        "/nicknames/{nickname}/validation",
		Summary:     "Validate nickname",
		Description: "Checks the nickname rules without touching storage. Reports the first rule that fails.",
		Tags:        []string{"Nicknames"},
	}, func(_ context.Context, input *ValidationInput) (*ValidationOutput, error) {
		return &ValidationOutput{Body: nickname.Validate(input.Nickname)}, nil
	})
}
