// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Rule operations
	OpRuleAdd     Op = "add rule"
	OpRuleRemove  Op = "remove rule"
	OpRuleEnable  Op = "enable rule"
	OpRuleDisable Op = "disable rule"
	OpRuleMove    Op = "move rule"
	OpRuleImport  Op = "import plugin file"
	OpRuleExport  Op = "export rules"
	OpRuleLoad    Op = "load rules"

	// Last.fm operations
	OpLastfmAuth       Op = "link Last.fm account"
	OpLastfmValidate   Op = "validate Last.fm session"
	OpLastfmNowPlaying Op = "update now playing"
	OpLastfmScrobble   Op = "scrobble"
	OpLastfmRetry      Op = "retry pending scrobbles"

	// Discord operations
	OpDiscordAuth     Op = "link Discord token"
	OpDiscordValidate Op = "validate Discord token"
	OpDiscordConnect  Op = "connect to Discord gateway"
	OpDiscordPresence Op = "update Discord presence"

	// Scanner
	OpProcessScan Op = "list processes"

	// Initialization
	OpInitialize Op = "initialize agent"
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
