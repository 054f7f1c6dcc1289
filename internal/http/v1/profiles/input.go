package profiles

import "github.com/janisto/engineer-profiles/internal/platform/pagination"

// ProfilesListInput defines query parameters for listing profiles.
type ProfilesListInput struct {
	pagination.Params
	Skill string `query:"skill" doc:"Only profiles listing this skill, case-insensitive" example:"Go" maxLength:"50"`
}

// ProfileByNicknameInput for GET /profiles/{nickname}
type ProfileByNicknameInput struct {
	Nickname string `path:"nickname" doc:"Profile nickname, case-insensitive" example:"john-doe" minLength:"1" maxLength:"36"`
}
