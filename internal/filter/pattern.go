package filter

import (
	"regexp"
	"strings"
)

// compiledPattern is a shell glob matched against a base name.
type compiledPattern struct {
	re       *regexp.Regexp
	original string
}

// compilePattern converts an fnmatch-style glob into an anchored matcher.
func compilePattern(pattern string) (*compiledPattern, error) {
	re, err := regexp.Compile("(?s)^" + globToRegex(pattern) + "$")
	if err != nil {
		return nil, err
	}
	return &compiledPattern{re: re, original: pattern}, nil
}

func (cp *compiledPattern) match(name string) bool {
	return cp.re.MatchString(name)
}

// globToRegex converts a glob pattern to a regex string. Unlike path globs,
// '*' and '?' also match '/', as fnmatch does.
func globToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteString(".")
			i++
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				cls := strings.ReplaceAll(pattern[i+1:j], `\`, `\\`)
				if strings.HasPrefix(cls, "!") {
					cls = "^" + cls[1:]
				} else if strings.HasPrefix(cls, "^") {
					cls = `\` + cls
				}
				b.WriteString("[" + cls + "]")
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}
