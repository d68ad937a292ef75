// Package keys builds and splits the composite ids stored by hanakv backends.
package keys

import "strings"

// Composite returns the stored id for key under namespace:
// "<namespace>:<key>", or key verbatim when namespace is empty.
func Composite(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// CompositeAll maps Composite over ks.
func CompositeAll(namespace string, ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = Composite(namespace, k)
	}
	return out
}

// Strip removes the namespace prefix from a stored id. Ids outside the
// namespace are returned unchanged.
func Strip(namespace, id string) string {
	if namespace == "" {
		return id
	}
	return strings.TrimPrefix(id, namespace+":")
}
