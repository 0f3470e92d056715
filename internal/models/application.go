package models

import "time"

// Application is a tracked job application.
type Application struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Company   string    `json:"company"`
	RoleTitle string    `json:"role_title"`
	Status    string    `json:"status"`
	URL       string    `json:"url,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplicationStatuses are the values accepted for Application.Status.
var ApplicationStatuses = []string{"SAVED", "APPLIED", "INTERVIEWING", "OFFER", "REJECTED", "WITHDRAWN"}

// ValidApplicationStatus reports whether s is one of ApplicationStatuses.
func ValidApplicationStatus(s string) bool {
	for _, v := range ApplicationStatuses {
		if v == s {
			return true
		}
	}
	return false
}
