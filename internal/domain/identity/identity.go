// Package identity maps natural keys to stable document identifiers.
//
// An identifier is the RFC 4122 version 5 (SHA-1, name-based) UUID of the
// natural key's UTF-8 bytes under Namespace(), rendered in canonical lowercase
// 8-4-4-4-12 form. Any RFC 4122 implementation given the same namespace and
// bytes produces the same identifier, so stores written by other processes
// stay addressable. Changing the scheme means introducing a new namespace.
package identity

import "github.com/google/uuid"

// NamespaceV1 is the namespace for knowledge-store identifiers.
const NamespaceV1 = "6f1f4d2c-8e5b-4c1a-9a57-3b0e2d9c4f10"

var namespace = uuid.MustParse(NamespaceV1)

// Namespace returns a copy of the identifier namespace.
func Namespace() uuid.UUID { return namespace }

// DeriveID returns the document id for a natural key. The key is used as-is:
// no trimming or case folding.
func DeriveID(naturalKey string) string {
	return uuid.NewSHA1(namespace, []byte(naturalKey)).String()
}

// IsID reports whether s is already a canonical document identifier.
func IsID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
