package executor

import "strings"

// Sanitize removes control characters that are not valid in the destination
// document's text model and normalizes line endings to a single \n style.
// It is idempotent: sanitizing already-sanitized text is a no-op.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// other C0 controls and DEL are dropped
		case r >= 0x80 && r <= 0x9f:
			// C1 controls
		case r == 0xfffd:
			// replacement character from broken decoding upstream
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
