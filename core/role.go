package core

import "strings"

// Role is the closed set of principal roles. Rank and permission lookups are
// exhaustive switches so a new role must be added to each of them.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleTrainer Role = "TRAINER"
	RoleStaff   Role = "STAFF"
	RoleMember  Role = "MEMBER"
)

// AllRoles lists every role from most to least privileged.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleTrainer, RoleStaff, RoleMember}

// Permission names a capability granted to a role.
type Permission string

const (
	PermManageUsers       Permission = "manage_users"
	PermManageMembers     Permission = "manage_members"
	PermManageStaff       Permission = "manage_staff"
	PermManageClasses     Permission = "manage_classes"
	PermManagePayments    Permission = "manage_payments"
	PermManageEquipment   Permission = "manage_equipment"
	PermViewAnalytics     Permission = "view_analytics"
	PermManageSettings    Permission = "manage_settings"
	PermViewPayments      Permission = "view_payments"
	PermViewMembers       Permission = "view_members"
	PermManageOwnClasses  Permission = "manage_own_classes"
	PermViewOwnSchedule   Permission = "view_own_schedule"
	PermRecordAttendance  Permission = "record_attendance"
	PermProcessPayments   Permission = "process_payments"
	PermManageBookings    Permission = "manage_bookings"
	PermViewOwnProfile    Permission = "view_own_profile"
	PermBookClasses       Permission = "book_classes"
	PermViewOwnPayments   Permission = "view_own_payments"
	PermViewOwnAttendance Permission = "view_own_attendance"
)

// ParseRole accepts any casing; the users table stores roles in lower case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Valid reports whether r is one of the five known roles.
func (r Role) Valid() bool {
	return RankOf(r) > 0
}

// storageName is the representation written to the users table.
func (r Role) storageName() string {
	return strings.ToLower(string(r))
}

// RankOf returns the hierarchy level of a role; unknown roles rank 0.
// TRAINER and STAFF share a rank and satisfy each other's requirements.
func RankOf(r Role) int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleManager:
		return 3
	case RoleTrainer, RoleStaff:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Permissions returns the fixed permission set of the role.
func (r Role) Permissions() []Permission {
	switch r {
	case RoleAdmin:
		return []Permission{
			PermManageUsers, PermManageMembers, PermManageStaff, PermManageClasses,
			PermManagePayments, PermManageEquipment, PermViewAnalytics, PermManageSettings,
		}
	case RoleManager:
		return []Permission{
			PermManageMembers, PermManageStaff, PermManageClasses, PermViewPayments,
			PermManageEquipment, PermViewAnalytics,
		}
	case RoleTrainer:
		return []Permission{PermViewMembers, PermManageOwnClasses, PermViewOwnSchedule, PermRecordAttendance}
	case RoleStaff:
		return []Permission{PermViewMembers, PermRecordAttendance, PermProcessPayments, PermManageBookings}
	case RoleMember:
		return []Permission{PermViewOwnProfile, PermBookClasses, PermViewOwnPayments, PermViewOwnAttendance}
	default:
		return nil
	}
}

// HasRole is a hierarchical check: a higher-ranked role satisfies a
// lower-ranked requirement.
func HasRole(p *Principal, required Role) bool {
	if p == nil {
		return false
	}
	return RankOf(p.Role) >= RankOf(required)
}

// HasPermission reports whether perm belongs to the principal's role.
func HasPermission(p *Principal, perm Permission) bool {
	if p == nil {
		return false
	}
	for _, granted := range p.Role.Permissions() {
		if granted == perm {
			return true
		}
	}
	return false
}
