package schema

import (
	"strconv"
	"strings"

	"github.com/artpar/conform/core/value"
)

// escapeToken encodes one reference token per RFC 6901.
func escapeToken(token string) string {
	if !strings.ContainsAny(token, "~/") {
		return token
	}
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// splitPointer splits a JSON Pointer into decoded reference tokens.
// The empty pointer yields no tokens.
func splitPointer(pointer string) []string {
	if pointer == "" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts
}

// normalizeRef turns a $ref value into a canonical in-document pointer.
// Only fragment references are supported: "#" is the document root and
// "#/a/b" a pointer. Anything else (external URIs, named anchors) does
// not resolve in-document.
func normalizeRef(ref string) (string, bool) {
	switch {
	case ref == "#":
		return "", true
	case strings.HasPrefix(ref, "#/"):
		return ref[1:], true
	default:
		return "", false
	}
}

// locate walks the raw document to the value a pointer addresses.
func locate(root value.Value, pointer string) (value.Value, bool) {
	current := root
	for _, token := range splitPointer(pointer) {
		switch current.Kind() {
		case value.Object:
			next, ok := current.Member(token)
			if !ok {
				return value.Value{}, false
			}
			current = next
		case value.Array:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(current.Items()) {
				return value.Value{}, false
			}
			current = current.Items()[i]
		default:
			return value.Value{}, false
		}
	}
	return current, true
}
