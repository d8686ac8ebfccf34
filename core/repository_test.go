package core

import (
	"strings"
	"testing"
)

func TestBuildUserFilter(t *testing.T) {
	active := false
	cases := []struct {
		name      string
		filter    UserFilter
		wantWhere string
		wantArgs  []any
	}{
		{"none", UserFilter{}, "", nil},
		{"role only", UserFilter{Role: RoleTrainer}, " WHERE lower(role) = $1", []any{"trainer"}},
		{
			"search role active",
			UserFilter{Search: "  Jo_e ", Role: RoleAdmin, Active: &active},
			" WHERE (lower(first_name) LIKE $1 OR lower(last_name) LIKE $1 OR lower(email) LIKE $1 OR COALESCE(phone_number, '') LIKE $1) AND lower(role) = $2 AND is_active = $3",
			[]any{`%jo\_e%`, "admin", false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := buildUserFilter(tc.filter)
			if where != tc.wantWhere {
				t.Fatalf("where = %q\nwant  %q", where, tc.wantWhere)
			}
			if len(args) != len(tc.wantArgs) {
				t.Fatalf("args = %v", args)
			}
			for i := range args {
				if args[i] != tc.wantArgs[i] {
					t.Fatalf("args[%d] = %v, want %v", i, args[i], tc.wantArgs[i])
				}
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}

func TestDisplayRole(t *testing.T) {
	if got := displayRole("manager"); got != RoleManager {
		t.Fatalf("displayRole(manager) = %q", got)
	}
	if got := displayRole("owner"); got != Role("owner") {
		t.Fatalf("unknown role should pass through, got %q", got)
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(schemaSQL)
	if len(stmts) != 4 {
		t.Fatalf("got %d statements", len(stmts))
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE IF NOT EXISTS users") {
		t.Fatalf("first statement = %q", stmts[0])
	}
	for _, s := range stmts {
		if !strings.Contains(s, "IF NOT EXISTS") {
			t.Fatalf("statement is not idempotent: %q", s)
		}
	}
}

func TestParsePagination(t *testing.T) {
	page, perPage, err := parsePagination("", "")
	if err != nil || page != 1 || perPage != defaultPerPage {
		t.Fatalf("defaults = %d %d %v", page, perPage, err)
	}
	if _, perPage, _ := parsePagination("2", "500"); perPage != maxPerPage {
		t.Fatalf("per_page not capped: %d", perPage)
	}
	for _, in := range [][2]string{{"0", ""}, {"x", ""}, {"", "-1"}} {
		if _, _, err := parsePagination(in[0], in[1]); err == nil {
			t.Errorf("parsePagination(%q, %q) should fail", in[0], in[1])
		}
	}
	if got := calcTotalPages(41, 20); got != 3 {
		t.Fatalf("calcTotalPages = %d", got)
	}
	if got := calcTotalPages(0, 20); got != 0 {
		t.Fatalf("calcTotalPages(0) = %d", got)
	}
}
