package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxUsernameLength defines the maximum allowed length for usernames
	MaxUsernameLength = 50
	// MaxRoleNameLength defines the maximum allowed length for role names
	MaxRoleNameLength = 50
)

// dangerousPatterns contains regex patterns that must never reach storage or logs
// as part of an identifier
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(--|/\*|\*/|;)`),
	regexp.MustCompile(`(?i)(<script|</script|javascript:|vbscript:|onload=|onerror=)`),
}

// ValidateUsername trims a username and checks it only contains safe characters
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("username is required")
	}

	if len(username) > MaxUsernameLength {
		return "", errors.New("username too long")
	}

	if containsDangerousPattern(username) {
		return "", errors.New("username contains invalid characters")
	}

	for _, char := range username {
		if !isValidUsernameChar(char) {
			return "", errors.New("username contains invalid characters")
		}
	}

	return username, nil
}

// ValidateRoleName trims a role name and checks it only contains safe characters
func ValidateRoleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("role name is required")
	}

	if len(name) > MaxRoleNameLength {
		return "", errors.New("role name too long")
	}

	for _, char := range name {
		if !isValidRoleChar(char) {
			return "", errors.New("role name contains invalid characters")
		}
	}

	return name, nil
}

func containsDangerousPattern(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// isValidUsernameChar checks if a character is allowed in a username
func isValidUsernameChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsNumber(char) ||
		char == '-' || char == '_' || char == '.' || char == '@'
}

// isValidRoleChar checks if a character is allowed in a role name
func isValidRoleChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsNumber(char) ||
		char == '_' || char == '-'
}
