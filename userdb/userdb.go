// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package userdb provides credential stores satisfying the relay's login
// check. The relay treats the store as an external collaborator: it asks
// whether a username/password pair identifies a known user, and nothing
// else.
package userdb

import (
	"context"
	"fmt"
	"strings"
)

// A Static is an in-memory credential store mapping usernames to passwords.
// It implements the chatter.Authenticator interface. The map must not be
// modified while sessions are running.
type Static map[string]string

// Authenticate implements the chatter.Authenticator interface. It reports
// whether username is known and password matches its stored credential.
func (s Static) Authenticate(_ context.Context, username, password string) bool {
	want, ok := s[username]
	return ok && want == password
}

// Demo returns a store holding the built-in demonstration accounts, each
// with password "123".
func Demo() Static {
	return Static{
		"zhangsan": "123",
		"lisi":     "123",
		"wangwu":   "123",
	}
}

// Parse builds a store from a comma-separated list of user:password pairs,
// for example "alice:p1,bob:p2". Usernames must be non-empty and unique
// within the list.
func Parse(list string) (Static, error) {
	out := make(Static)
	for _, pair := range strings.Split(list, ",") {
		name, pass, ok := strings.Cut(pair, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid credential pair %q", pair)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate username %q", name)
		}
		out[name] = pass
	}
	return out, nil
}
