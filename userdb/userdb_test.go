// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package userdb_test

import (
	"context"
	"testing"

	"github.com/creachadair/chatter/userdb"
	"github.com/google/go-cmp/cmp"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	db := userdb.Demo()

	tests := []struct {
		user, pass string
		want       bool
	}{
		{"zhangsan", "123", true},
		{"lisi", "123", true},
		{"wangwu", "123", true},
		{"zhangsan", "1234", false},
		{"zhangsan", "", false},
		{"unknown", "123", false},
		{"", "", false},
	}
	for _, tc := range tests {
		if got := db.Authenticate(ctx, tc.user, tc.pass); got != tc.want {
			t.Errorf("Authenticate(%q, %q): got %v, want %v", tc.user, tc.pass, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	got, err := userdb.Parse("alice:p1,bob:p2,carol:")
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	want := userdb.Static{"alice": "p1", "bob": "p2", "carol": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse (-want, +got):\n%s", diff)
	}

	for _, bad := range []string{
		"",                  // no pairs at all
		"alice",             // missing password separator
		":p1",               // empty username
		"alice:p1,alice:p2", // duplicate username
	} {
		if got, err := userdb.Parse(bad); err == nil {
			t.Errorf("Parse(%q): got %v, want error", bad, got)
		}
	}
}
