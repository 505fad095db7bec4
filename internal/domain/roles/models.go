package roles

import "time"

type ExpectedApp struct {
	AppID      string `json:"appId"`
	AppName    string `json:"appName"`
	AccessType string `json:"accessType"`
	Required   bool   `json:"required"`
}

type Template struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Department   string        `json:"department,omitempty"`
	Level        string        `json:"level,omitempty"`
	ExpectedApps []ExpectedApp `json:"expectedApps"`
	UserCount    int           `json:"userCount"`
	Popularity   int           `json:"popularity"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type Assignment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	TemplateID string    `json:"templateId"`
	Active     bool      `json:"active"`
	AssignedBy string    `json:"assignedBy"`
	AssignedAt time.Time `json:"assignedAt"`
}
