package hana

import "strings"

// likeEscape is the escape character declared by every LIKE clause this
// package issues.
const likeEscape = '\\'

// escapeLike neutralizes the characters with special meaning in a LIKE
// pattern (match-any, match-one and the escape character itself) so a
// namespace containing them cannot widen or shift the match scope.
func escapeLike(s string) string {
	if !strings.ContainsAny(s, `%_\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '%', '_', likeEscape:
			b.WriteByte(likeEscape)
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// prefixPattern is the LIKE pattern matching every id under namespace, or
// every id at all when namespace is empty.
func prefixPattern(namespace string) string {
	if namespace == "" {
		return "%"
	}
	return escapeLike(namespace) + ":%"
}
