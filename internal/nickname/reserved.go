package nickname

// reserved holds nicknames that collide with routes or product vocabulary.
// Keys are normalized.
var reserved = map[string]struct{}{
	"admin": {}, "api": {}, "www": {},
	"profile": {}, "profiles": {},
	"signin": {}, "signup": {}, "login": {}, "logout": {},
	"create": {}, "edit": {}, "delete": {}, "settings": {},
	"help": {}, "about": {}, "contact": {}, "terms": {}, "privacy": {}, "support": {},
	"blog": {}, "news": {}, "docs": {}, "documentation": {},
	"nickname": {}, "nicknames": {},
	"health": {}, "images": {}, "static": {}, "assets": {}, "v1": {},
}

// IsReserved reports whether s is a reserved word, ignoring case.
func IsReserved(s string) bool {
	_, ok := reserved[Normalize(s)]
	return ok
}
