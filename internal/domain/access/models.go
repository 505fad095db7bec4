package access

import "time"

// Access types ordered by privilege.
const (
	TypeViewer = "viewer"
	TypeMember = "member"
	TypeAdmin  = "admin"
	TypeOwner  = "owner"
)

// Grant is one user's access to one application. Detectors only read
// grants; the campaign engine's revocation path is the only in-scope writer.
type Grant struct {
	UserID                string     `json:"userId"`
	AppID                 string     `json:"appId"`
	AccessType            string     `json:"accessType"`
	GrantedAt             time.Time  `json:"grantedDate"`
	LastAccessAt          *time.Time `json:"lastAccessDate,omitempty"`
	BusinessJustification string     `json:"businessJustification,omitempty"`
}

// IsAdminLevel reports whether the grant carries admin or owner privilege.
func (g Grant) IsAdminLevel() bool {
	return g.AccessType == TypeAdmin || g.AccessType == TypeOwner
}

// DaysSinceLastUse counts days since the grant was last exercised, falling
// back to the grant date when it has never been used.
func (g Grant) DaysSinceLastUse(now time.Time) int {
	ref := g.GrantedAt
	if g.LastAccessAt != nil {
		ref = *g.LastAccessAt
	}
	days := int(now.Sub(ref).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DaysSinceGranted counts the grant's age in days.
func (g Grant) DaysSinceGranted(now time.Time) int {
	days := int(now.Sub(g.GrantedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
