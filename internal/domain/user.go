package domain

// Privilege bits in use by this service.
const (
	PrivUnrestricted = 1 << 0
	PrivVerified     = 1 << 1
	PrivWhitelisted  = 1 << 2
)

type User struct {
	ID              int64
	Name            string
	Country         string
	Privileges      int
	PasswordBcrypt  string
	PreferredMetric string
	Whitelist       int
	ClanTag         string
}

func (u *User) Restricted() bool { return u.Privileges&PrivUnrestricted == 0 }

// WhitelistStage indexes into Mode.PPCaps.
func (u *User) WhitelistStage() int {
	if u.Privileges&PrivWhitelisted == 0 {
		return 0
	}
	switch {
	case u.Whitelist < 1:
		return 1
	case u.Whitelist > 4:
		return 4
	default:
		return u.Whitelist
	}
}

// DisplayName prefixes the clan tag when present.
func (u *User) DisplayName() string {
	if u.ClanTag == "" {
		return u.Name
	}
	return "[" + u.ClanTag + "] " + u.Name
}
