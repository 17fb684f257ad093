package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// ErrInvalid marks request fields that failed validation.
var ErrInvalid = errors.New("validation failed")

// Size limits (in bytes)
const (
	MaxParamsSize  = 1 * 1024 * 1024 // 1MB - tool parameters as JSON
	MaxMessageSize = 16 * 1024       // 16KB - discovery intent
	MaxInputSize   = 64 * 1024       // 64KB - one send_input payload
	MaxParamsDepth = 10
)

// String length limits
const (
	MaxIDLength       = 128
	MaxCategoryLength = 64
)

// Regular expressions for validation
var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// ToolIDPattern allows alphanumeric, hyphens, underscores, and dots (for service.tool format)
	ToolIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.[a-zA-Z0-9._-]+$`)
	// CategoryPattern allows lowercase letters, numbers, and hyphens
	CategoryPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if value == "" {
		if required {
			return invalid("%s is required", fieldName)
		}
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return invalid("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return invalid("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Null bytes truncate C strings handed to exec.
	if strings.Contains(value, "\x00") {
		return invalid("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateID validates a session or execution ID
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}
	if id != "" && !SafeIDPattern.MatchString(id) {
		return invalid("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}
	return nil
}

// ValidateToolID validates a "<service>.<tool>" ID
func ValidateToolID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}
	if id != "" && !ToolIDPattern.MatchString(id) {
		return invalid("%s must look like service.tool", fieldName)
	}
	return nil
}

// ValidateCategory validates a category filter
func ValidateCategory(category string, required bool) error {
	if err := ValidateString(category, "category", 0, MaxCategoryLength, required); err != nil {
		return err
	}
	if category != "" && !CategoryPattern.MatchString(category) {
		return invalid("category must contain only lowercase letters, numbers, and hyphens")
	}
	return nil
}

// ValidateMessage validates a free-text discovery intent
func ValidateMessage(message string) error {
	if err := ValidateString(message, "message", 1, MaxMessageSize, true); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return invalid("message is blank")
	}
	return nil
}

// ValidateInput bounds the size of text typed into a session. Empty input
// is allowed so callers can press Enter alone.
func ValidateInput(input string) error {
	if len(input) > MaxInputSize {
		return invalid("input exceeds %d bytes", MaxInputSize)
	}
	return nil
}

// ValidateParams checks the encoded size and nesting depth of tool
// parameters.
func ValidateParams(params map[string]interface{}) error {
	if params == nil {
		return nil
	}
	data, err := sonic.Marshal(params)
	if err != nil {
		return invalid("params are not serializable: %v", err)
	}
	if len(data) > MaxParamsSize {
		return invalid("params size %d bytes exceeds maximum %d bytes", len(data), MaxParamsSize)
	}
	return ValidateJSONDepth(params, MaxParamsDepth)
}

// ValidateJSONDepth checks if JSON nesting depth is within limits
func ValidateJSONDepth(data interface{}, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data interface{}, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return invalid("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}
