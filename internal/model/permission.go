package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionMediaUpload allows uploading question images.
	PermissionMediaUpload Permission = "media:upload"

	// PermissionBanksRead allows viewing question banks and their results.
	PermissionBanksRead Permission = "banks:read"

	// PermissionBanksWrite allows creating banks and replacing their questions.
	PermissionBanksWrite Permission = "banks:write"

	// PermissionReviewsGrade allows grading essay answers.
	PermissionReviewsGrade Permission = "reviews:grade"
)

// AllPermissions lists every permission code, used when issuing full admin tokens.
var AllPermissions = []Permission{
	PermissionMediaUpload,
	PermissionBanksRead,
	PermissionBanksWrite,
	PermissionReviewsGrade,
}
