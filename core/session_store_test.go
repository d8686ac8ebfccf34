package core

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSessionStorePrincipalRoundTrip(t *testing.T) {
	store := newTestSessionStore()
	if store.Principal() != nil {
		t.Fatalf("fresh store has a principal")
	}
	in := Principal{
		ID: "8d1f", Email: "manager@gym.com", Phone: "5550100",
		FirstName: "Manager", LastName: "User", Role: RoleManager,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	store.SetPrincipal(in)
	if !store.Dirty() {
		t.Fatalf("store not dirty after SetPrincipal")
	}
	out := store.Principal()
	if out == nil || out.ID != in.ID || out.Role != in.Role || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("principal = %+v", out)
	}

	raw, _ := store.session.Values[sessionKeyUser].(string)
	for _, key := range []string{`"firstName"`, `"lastName"`, `"createdAt"`, `"role":"MANAGER"`} {
		if !strings.Contains(raw, key) {
			t.Fatalf("serialized principal %s lacks %s", raw, key)
		}
	}
}

func TestSessionStoreMalformedValues(t *testing.T) {
	cases := map[string]interface{}{
		"bad json":     "{not json",
		"unknown role": `{"id":"1","role":"OWNER"}`,
		"wrong type":   42,
		"empty":        "",
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			store := newTestSessionStore()
			store.session.Values[sessionKeyUser] = v
			if p := store.Principal(); p != nil {
				t.Fatalf("principal = %+v", p)
			}
		})
	}

	store := newTestSessionStore()
	store.session.Values[sessionKeyToken] = 7
	if _, ok := store.SessionToken(); ok {
		t.Fatalf("non-string token accepted")
	}
}

func TestSessionStoreClear(t *testing.T) {
	store := newTestSessionStore()
	store.session.Values[sessionKeyCSRF] = "keep"
	store.session.Values[sessionKeyRefreshToken] = "legacy"
	store.SetPrincipal(Principal{ID: "1", Role: RoleMember})
	store.SetSessionToken("gym_1_ab")

	store.Clear()
	store.Clear()

	for _, k := range []string{sessionKeyUser, sessionKeyToken, sessionKeyRefreshToken} {
		if _, ok := store.session.Values[k]; ok {
			t.Fatalf("%s survived Clear", k)
		}
	}
	if store.session.Values[sessionKeyCSRF] != "keep" {
		t.Fatalf("csrf token removed")
	}
}

func TestSessionStoreClearOnEmptyIsClean(t *testing.T) {
	store := newTestSessionStore()
	store.Clear()
	if store.Dirty() {
		t.Fatalf("clearing an empty store marked it dirty")
	}
}

func TestSessionStoreRenew(t *testing.T) {
	store := newTestSessionStore()
	store.session.ID = "anonymous"
	store.session.Values[sessionKeyCSRF] = "before"

	if err := store.Renew(context.Background()); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if store.session.ID != "" || !store.session.IsNew {
		t.Fatalf("session id kept: %q", store.session.ID)
	}
	if tok := store.CSRFToken(); tok == "" || tok == "before" {
		t.Fatalf("csrf token not replaced: %q", tok)
	}
	if !store.Dirty() {
		t.Fatalf("renewed store not dirty")
	}
}
