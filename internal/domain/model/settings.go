package model

import "time"

// UserSettings holds per-user display and workflow preferences.
type UserSettings struct {
	GitHubID       string
	AutoFix        bool
	PreferredModel string
	Theme          string
	UpdatedAt      time.Time
}

// DefaultSettings returns the settings applied before a user saves any.
func DefaultSettings(githubID, defaultModel string) UserSettings {
	return UserSettings{
		GitHubID:       githubID,
		AutoFix:        false,
		PreferredModel: defaultModel,
		Theme:          "dark",
	}
}
