package utils

import "strings"

// RapidaEnvironment gates behavior that must differ between deployments, such
// as accepting unsigned webhooks when no secret is configured.
type RapidaEnvironment string

const (
	PRODUCTION  RapidaEnvironment = "production"
	DEVELOPMENT RapidaEnvironment = "development"
)

func (e RapidaEnvironment) Get() string {
	return string(e)
}

func (e RapidaEnvironment) IsProduction() bool {
	return e == PRODUCTION
}

// FromEnvironmentStr parses an environment name, defaulting to development.
func FromEnvironmentStr(s string) RapidaEnvironment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production":
		return PRODUCTION
	case "development":
		return DEVELOPMENT
	default:
		return DEVELOPMENT
	}
}
