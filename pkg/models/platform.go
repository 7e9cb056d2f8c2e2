package models

import (
	"fmt"
	"strings"
)

// Platform identifies a supported coding-practice site
type Platform string

const (
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeforces Platform = "codeforces"
	PlatformCodeChef   Platform = "codechef"
	PlatformW3Schools  Platform = "w3schools"
)

// Platforms lists every supported platform in canonical order
var Platforms = []Platform{
	PlatformLeetCode,
	PlatformCodeforces,
	PlatformCodeChef,
	PlatformW3Schools,
}

// MaxPlatformUsernameLength caps a stored platform handle
const MaxPlatformUsernameLength = 50

// ParsePlatform converts a raw platform key into a Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("platform %s is not supported: %w", s, ErrUnsupportedPlatform)
	}
	return p, nil
}

// Valid reports whether p is one of the supported platforms
func (p Platform) Valid() bool {
	switch p {
	case PlatformLeetCode, PlatformCodeforces, PlatformCodeChef, PlatformW3Schools:
		return true
	}
	return false
}

func (p Platform) String() string { return string(p) }

// PlatformAccount is one (platform, username) pair submitted for fetching.
// Platform stays a raw string so unsupported keys can be reported per entry.
type PlatformAccount struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
}

// PlatformAccounts is an ordered list of accounts; order drives fetch and result order
type PlatformAccounts []PlatformAccount

// Active returns accounts with a non-blank username, usernames trimmed
func (a PlatformAccounts) Active() PlatformAccounts {
	out := make(PlatformAccounts, 0, len(a))
	for _, acc := range a {
		username := strings.TrimSpace(acc.Username)
		if username == "" {
			continue
		}
		out = append(out, PlatformAccount{Platform: acc.Platform, Username: username})
	}
	return out
}

// PlatformUsernames is the user directory's authoritative platform map
type PlatformUsernames map[Platform]string

// Accounts returns the map as ordered accounts (canonical platform order)
func (p PlatformUsernames) Accounts() PlatformAccounts {
	accounts := make(PlatformAccounts, 0, len(p))
	for _, platform := range Platforms {
		if username, ok := p[platform]; ok {
			accounts = append(accounts, PlatformAccount{Platform: string(platform), Username: username})
		}
	}
	return accounts
}

// ActivePlatforms returns platforms whose username is non-blank, in canonical order
func (p PlatformUsernames) ActivePlatforms() []Platform {
	active := make([]Platform, 0, len(p))
	for _, platform := range Platforms {
		if strings.TrimSpace(p[platform]) != "" {
			active = append(active, platform)
		}
	}
	return active
}

// Clone copies the map
func (p PlatformUsernames) Clone() PlatformUsernames {
	out := make(PlatformUsernames, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
