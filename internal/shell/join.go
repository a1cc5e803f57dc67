package shell

import "strings"

// Join builds the single command line handed to the host shell.
//
// Tokens the shell would reinterpret (empty, or holding whitespace, quotes
// or backslashes) are wrapped in double quotes with backslash and quote
// escaped. Everything else is passed through so operators such as |, >,
// && and $VAR keep their shell meaning.
func Join(argv []string) string {
	var b strings.Builder
	for i, a := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		if !needsQuoting(a) {
			b.WriteString(a)
			continue
		}
		b.WriteByte('"')
		for j := 0; j < len(a); j++ {
			if a[j] == '"' || a[j] == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(a[j])
		}
		b.WriteByte('"')
	}
	return b.String()
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) || isQuoteOrEscape(s[i]) {
			return true
		}
	}
	return false
}

// JoinWindows builds the command line for cmd /C. Tokens are quoted the way
// CommandLineToArgvW and the C runtime split them: backslashes are literal
// unless they precede a quote, and a quote inside a token is written as \".
// cmd.exe itself does not honor \", so &, |, < and > inside a token that
// also holds a quote still reach cmd.exe unquoted.
func JoinWindows(argv []string) string {
	var b strings.Builder
	for i, a := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		if a != "" && !strings.ContainsAny(a, " \t\n\v\"") {
			b.WriteString(a)
			continue
		}
		b.WriteByte('"')
		slashes := 0
		for j := 0; j < len(a); j++ {
			c := a[j]
			switch c {
			case '\\':
				slashes++
			case '"':
				for ; slashes > 0; slashes-- {
					b.WriteByte('\\')
				}
				b.WriteByte('\\')
			default:
				slashes = 0
			}
			b.WriteByte(c)
		}
		for ; slashes > 0; slashes-- {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	return b.String()
}
