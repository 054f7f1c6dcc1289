package profiles

import "github.com/janisto/engineer-profiles/internal/http/v1/profile"

// ListData is the response body containing paginated profiles.
type ListData struct {
	Items []profile.Profile `json:"items" doc:"Profiles, newest first"`
	Total int               `json:"total" doc:"Total count of profiles matching the filter" example:"30"`
}

// ProfilesListOutput is the response wrapper with pagination Link header.
type ProfilesListOutput struct {
	Link string `header:"Link" doc:"RFC 8288 pagination links"`
	Body ListData
}

// ProfileByNicknameOutput carries the public share page data.
type ProfileByNicknameOutput struct {
	Body profile.Profile
}
