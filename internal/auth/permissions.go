package auth

import "slices"

// Role is the account type a user logs in as.
type Role string

const (
	RoleCitizen  Role = "citizen"
	RoleManager  Role = "gestor"
	RoleEmployer Role = "empregador"
	RoleAdmin    Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleCitizen, RoleManager, RoleEmployer, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

const (
	PermViewOwnProfile       = "view_own_profile"
	PermEditOwnProfile       = "edit_own_profile"
	PermSubmitRegistration   = "submit_registration"
	PermViewOwnRegistrations = "view_own_registrations"
	PermViewCenters          = "view_centers"
	PermViewCourses          = "view_courses"
	PermUploadDocuments      = "upload_documents"

	PermViewDashboard        = "view_dashboard"
	PermManageRegistrations  = "manage_registrations"
	PermApproveRegistrations = "approve_registrations"
	PermRejectRegistrations  = "reject_registrations"
	PermManageCenters        = "manage_centers"
	PermManageCourses        = "manage_courses"
	PermViewReports          = "view_reports"
	PermGenerateReports      = "generate_reports"
	PermManageNotifications  = "manage_notifications"
	PermViewActivities       = "view_activities"
	PermManageSystemSettings = "manage_system_settings"

	PermSearchGraduates      = "search_graduates"
	PermViewGraduateProfiles = "view_graduate_profiles"
	PermCreateInternships    = "create_internships"
	PermManageInternships    = "manage_internships"
	PermVerifyCertificates   = "verify_certificates"
	PermCreateJobListings    = "create_job_listings"
	PermManageJobListings    = "manage_job_listings"
	PermViewTalentReports    = "view_talent_reports"

	PermFullAccess           = "full_access"
	PermManageUsers          = "manage_users"
	PermSystemAdministration = "system_administration"
	PermViewAllData          = "view_all_data"
	PermBackupRestore        = "backup_restore"
)

var rolePermissions = map[Role][]string{
	RoleCitizen: {
		PermViewOwnProfile, PermEditOwnProfile, PermSubmitRegistration, PermViewOwnRegistrations,
		PermViewCenters, PermViewCourses, PermUploadDocuments,
	},
	RoleManager: {
		PermViewDashboard, PermManageRegistrations, PermApproveRegistrations, PermRejectRegistrations,
		PermManageCenters, PermManageCourses, PermViewReports, PermGenerateReports,
		PermManageNotifications, PermViewActivities, PermManageSystemSettings,
	},
	RoleEmployer: {
		PermViewDashboard, PermSearchGraduates, PermViewGraduateProfiles, PermCreateInternships,
		PermManageInternships, PermVerifyCertificates, PermCreateJobListings, PermManageJobListings,
		PermViewTalentReports,
	},
	RoleAdmin: {
		PermFullAccess, PermManageUsers, PermSystemAdministration, PermViewAllData, PermBackupRestore,
	},
}

// PermissionsFor returns a copy of the fixed permission set of role.
func PermissionsFor(role Role) []string {
	return slices.Clone(rolePermissions[role])
}
