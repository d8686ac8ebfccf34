package core

import "testing"

func TestRoutePolicy(t *testing.T) {
	rp, err := NewRoutePolicy()
	if err != nil {
		t.Fatalf("NewRoutePolicy: %v", err)
	}

	allowed := map[string][]Role{
		"/dashboard": {RoleAdmin, RoleManager, RoleTrainer, RoleStaff, RoleMember},
		"/members":   {RoleAdmin, RoleManager, RoleStaff},
		"/staff":     {RoleAdmin, RoleManager},
		"/classes":   {RoleAdmin, RoleManager, RoleTrainer, RoleStaff, RoleMember},
		"/payments":  {RoleAdmin, RoleManager, RoleStaff},
		"/equipment": {RoleAdmin, RoleManager, RoleStaff},
		"/analytics": {RoleAdmin, RoleManager},
		"/settings":  {RoleAdmin},
	}
	for route, roles := range allowed {
		in := map[Role]bool{}
		for _, r := range roles {
			in[r] = true
		}
		for _, r := range AllRoles {
			if got := rp.CanAccess(&Principal{Role: r}, route); got != in[r] {
				t.Fatalf("CanAccess(%s, %s) = %v, want %v", r, route, got, in[r])
			}
		}
	}
}

func TestRoutePolicyIsNotHierarchical(t *testing.T) {
	rp, err := NewRoutePolicy()
	if err != nil {
		t.Fatalf("NewRoutePolicy: %v", err)
	}
	// TRAINER ranks with STAFF but is not listed for /members.
	if rp.CanAccess(&Principal{Role: RoleTrainer}, "/members") {
		t.Fatalf("trainer reached /members")
	}
}

func TestRoutePolicyEdges(t *testing.T) {
	rp, err := NewRoutePolicy()
	if err != nil {
		t.Fatalf("NewRoutePolicy: %v", err)
	}
	admin := &Principal{Role: RoleAdmin}
	if rp.CanAccess(nil, "/dashboard") {
		t.Fatalf("nil principal allowed")
	}
	if rp.CanAccess(admin, "/unknown") {
		t.Fatalf("unknown route allowed")
	}
	if !rp.CanAccess(admin, "/settings/") {
		t.Fatalf("trailing slash not normalised")
	}
	if rp.CanAccess(&Principal{Role: Role("ghost")}, "/dashboard") {
		t.Fatalf("unknown role allowed")
	}

	got := rp.Routes(&Principal{Role: RoleMember})
	if len(got) != 2 || got[0] != "/classes" || got[1] != "/dashboard" {
		t.Fatalf("member routes = %v", got)
	}
}
