package nicknames

// AvailabilityInput for GET /nicknames/{nickname}/availability
type AvailabilityInput struct {
	Nickname      string `path:"nickname"       doc:"Candidate nickname"                         example:"john-doe" maxLength:"64"`
	ExcludeUserID string `query:"excludeUserId" doc:"Ignore profiles owned by this user. Defaults to the caller when authenticated." example:"test-user-123"`
}

// ValidationInput for GET /nicknames/{nickname}/validation
type ValidationInput struct {
	Nickname string `path:"nickname" doc:"Candidate nickname" example:"john-doe" maxLength:"64"`
}
