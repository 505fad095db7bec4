package overpriv

import "strings"

// departmentCategories maps each department to the app categories its staff
// plausibly administer. Admin access to an app outside the department's set
// counts as cross-department privilege.
var departmentCategories = map[string][]string{
	"engineering": {"development", "infrastructure", "monitoring", "collaboration"},
	"it":          {"infrastructure", "identity", "security", "collaboration", "monitoring"},
	"security":    {"security", "identity", "monitoring", "infrastructure"},
	"finance":     {"finance", "analytics", "collaboration"},
	"hr":          {"hr", "collaboration"},
	"sales":       {"crm", "analytics", "collaboration"},
	"marketing":   {"marketing", "analytics", "collaboration", "crm"},
	"legal":       {"legal", "collaboration"},
	"operations":  {"operations", "analytics", "collaboration"},
	"support":     {"crm", "collaboration", "monitoring"},
}

// crossDepartment reports whether an app category falls outside the
// department's relevance set. Unknown departments and uncategorized apps are
// not penalized.
func crossDepartment(department, category string) bool {
	if department == "" || category == "" {
		return false
	}
	relevant, ok := departmentCategories[strings.ToLower(department)]
	if !ok {
		return false
	}
	category = strings.ToLower(category)
	for _, c := range relevant {
		if c == category {
			return false
		}
	}
	return true
}
