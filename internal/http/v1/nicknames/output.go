package nicknames

import "github.com/janisto/engineer-profiles/internal/nickname"

// AvailabilityData is the availability answer for one nickname.
type AvailabilityData struct {
	Nickname  string `json:"nickname"          doc:"Nickname as requested"    example:"john-doe"`
	Available bool   `json:"available"         doc:"Whether it can be used"   example:"true"`
	Message   string `json:"message,omitempty" doc:"Why it cannot be used"    example:"this nickname is already in use"`
}

// AvailabilityOutput for GET /nicknames/{nickname}/availability
type AvailabilityOutput struct {
	Body AvailabilityData
}

// ValidationOutput for GET /nicknames/{nickname}/validation
type ValidationOutput struct {
	Body nickname.Result
}
