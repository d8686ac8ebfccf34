package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Exact role membership per route; no hierarchy is applied here.
const routeModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj
`

// routeRoles is the dashboard route table. Routes not listed are denied.
var routeRoles = map[string][]Role{
	"/dashboard": AllRoles,
	"/members":   {RoleAdmin, RoleManager, RoleStaff},
	"/staff":     {RoleAdmin, RoleManager},
	"/classes":   AllRoles,
	"/payments":  {RoleAdmin, RoleManager, RoleStaff},
	"/equipment": {RoleAdmin, RoleManager, RoleStaff},
	"/analytics": {RoleAdmin, RoleManager},
	"/settings":  {RoleAdmin},
}

// RoutePolicy answers which dashboard routes a principal may open.
type RoutePolicy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewRoutePolicy() (*RoutePolicy, error) {
	m, err := model.NewModelFromString(routeModel)
	if err != nil {
		return nil, fmt.Errorf("parse route model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create route enforcer: %w", err)
	}
	rules := make([][]string, 0, 32)
	for route, roles := range routeRoles {
		for _, role := range roles {
			rules = append(rules, []string{string(role), route})
		}
	}
	if _, err := enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("load route policies: %w", err)
	}
	return &RoutePolicy{enforcer: enforcer}, nil
}

// CanAccess is false for a nil principal and for unknown routes.
func (rp *RoutePolicy) CanAccess(p *Principal, route string) bool {
	if p == nil {
		return false
	}
	route = normalizeRoute(route)
	ok, err := rp.enforcer.Enforce(string(p.Role), route)
	return err == nil && ok
}

// Routes lists the known routes the principal may open.
func (rp *RoutePolicy) Routes(p *Principal) []string {
	var out []string
	for route := range routeRoles {
		if rp.CanAccess(p, route) {
			out = append(out, route)
		}
	}
	sort.Strings(out)
	return out
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return route
}
