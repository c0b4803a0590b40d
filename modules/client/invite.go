package client

import (
	"fmt"
	"net/url"
	"strings"
)

// InviteParam is the query parameter that carries the room name.
const InviteParam = "room"

// BuildInvite returns base with the room set as a query parameter.
func BuildInvite(base, room string) (string, error) {
	if room == "" {
		return "", ErrNoInviteRoom
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid invite base: %w", err)
	}
	q := u.Query()
	q.Set(InviteParam, room)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseInvite returns the room named by an invite link.
func ParseInvite(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("invalid invite link: %w", err)
	}
	room := u.Query().Get(InviteParam)
	if room == "" {
		return "", ErrNoInviteRoom
	}
	return room, nil
}
