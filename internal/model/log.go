// internal/model/log.go
package model

import "strings"

// MaxLogLength is the cap on the error/warning diagnostic fields. The
// partitioned table store limits string properties to 32 KiB; an append that
// would cross the cap is dropped whole rather than truncated mid-message.
const MaxLogLength = 32 * 1024

// LogSeparator joins successive diagnostic messages in one field.
const LogSeparator = "\n"

// AppendToLog appends msg to the current diagnostic log under the cap rule.
// A blank current log is replaced by msg verbatim; otherwise msg is appended
// after LogSeparator. If the result would exceed MaxLogLength the append is
// discarded and the log returned unchanged. The second return reports
// whether the append was applied.
func AppendToLog(current, msg string) (string, bool) {
	var next string
	if strings.TrimSpace(current) == "" {
		next = msg
	} else {
		next = current + LogSeparator + msg
	}
	if len(next) > MaxLogLength {
		return current, false
	}
	return next, true
}
