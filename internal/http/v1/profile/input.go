package profile

// SocialLinkInput is a link as sent by clients. ID is optional; known IDs are
// kept, anything else gets a fresh one.
type SocialLinkInput struct {
	ID      string `json:"id,omitempty" doc:"ID of an existing link to keep" example:"9b2f4c1e-8d8e-4f62-9a57-2d1f0f6b1c3a"`
	Service string `json:"service"      doc:"Service name"                   example:"GitHub"                    maxLength:"50"`
	URL     string `json:"url"          doc:"HTTP or HTTPS URL"              example:"https://github.com/johndoe" maxLength:"2048"`
}

// ProfileCreateInput for POST /profile
type ProfileCreateInput struct {
	Body struct {
		Nickname          string            `json:"nickname,omitempty"          maxLength:"36"                doc:"Public nickname"     example:"john-doe"`
		Name              string            `json:"name"                        maxLength:"100" required:"true" doc:"Display name"        example:"John Doe"`
		JobTitle          string            `json:"jobTitle"                    maxLength:"100" required:"true" doc:"Job title"           example:"Backend Engineer"`
		Bio               string            `json:"bio,omitempty"               maxLength:"500"               doc:"Short biography"     example:"Go and distributed systems."`
		Skills            []string          `json:"skills,omitempty"            maxItems:"20"                 doc:"Skills in display order"`
		YearsOfExperience *int              `json:"yearsOfExperience,omitempty" minimum:"0" maximum:"100"     doc:"Years of experience" example:"7"`
		SocialLinks       []SocialLinkInput `json:"socialLinks,omitempty"       maxItems:"10"                 doc:"Social links in display order"`
	}
}

// ProfileGetInput for GET /profile (no body needed)
type ProfileGetInput struct{}

// ProfileUpdateInput for PATCH /profile. Omitted fields are left unchanged;
// an empty nickname removes it and empty lists clear them.
type ProfileUpdateInput struct {
	Body struct {
		Nickname               *string           `json:"nickname,omitempty"               maxLength:"36"            doc:"Public nickname, empty to remove" example:"john-doe"`
		Name                   *string           `json:"name,omitempty"                   maxLength:"100"           doc:"Display name"                     example:"John Doe"`
		JobTitle               *string           `json:"jobTitle,omitempty"               maxLength:"100"           doc:"Job title"                        example:"Backend Engineer"`
		Bio                    *string           `json:"bio,omitempty"                    maxLength:"500"           doc:"Short biography"                  example:"Go and distributed systems."`
		Skills                 []string          `json:"skills,omitempty"                 maxItems:"20"             doc:"Replaces the skill list"`
		YearsOfExperience      *int              `json:"yearsOfExperience,omitempty"      minimum:"0" maximum:"100" doc:"Years of experience"              example:"7"`
		ClearYearsOfExperience bool              `json:"clearYearsOfExperience,omitempty"                           doc:"Remove years of experience"       example:"false"`
		SocialLinks            []SocialLinkInput `json:"socialLinks,omitempty"            maxItems:"10"             doc:"Replaces the link list"`
	}
}

// ProfileDeleteInput for DELETE /profile (no body needed)
type ProfileDeleteInput struct{}

// ProfileImageInput for PUT /profile/image. The body is the raw image.
type ProfileImageInput struct {
	ContentType string `header:"Content-Type" doc:"Image media type" example:"image/png"`
	RawBody     []byte `contentType:"image/*"`
}

// ProfileImageDeleteInput for DELETE /profile/image (no body needed)
type ProfileImageDeleteInput struct{}
