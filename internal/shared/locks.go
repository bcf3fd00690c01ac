package shared

import (
	"fmt"
	"strings"
)

// TerminalLockKey builds the redis key guarding a POS terminal against
// concurrent sessions.
func TerminalLockKey(terminal string) string {
	return fmt.Sprintf("pos:terminal:%s:lock", strings.ToLower(strings.TrimSpace(terminal)))
}

// FXRateKey builds the redis key holding the cached exchange rate for a source.
func FXRateKey(source string) string {
	return fmt.Sprintf("fx:rate:%s", source)
}
