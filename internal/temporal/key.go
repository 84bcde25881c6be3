package temporal

import (
	"fmt"
	"strconv"
	"strings"
)

// Storage key constants. These are part of the stable storage format,
// not internal details: external tooling may rely on them.
const (
	// Separator divides a stable identity from its revision number in
	// a temporal key. Identities containing it are rejected.
	Separator = "::"

	// HistoryKeyPrefix is the reserved prefix under which each
	// identity's history index document is stored.
	HistoryKeyPrefix = "history::"

	// ConfigKeyPrefix is the reserved prefix under which versioning
	// configuration documents are stored.
	ConfigKeyPrefix = "config::versioning::"
)

// EncodeKey builds the temporal key for one revision of an identity.
func EncodeKey(identity string, revision int64) string {
	return identity + Separator + strconv.FormatInt(revision, 10)
}

// DecodeKey splits a temporal key back into its stable identity and
// revision number.
//
// Fails with ErrMalformedKey if the separator is absent or the suffix
// is not a valid non-negative integer.
func DecodeKey(key string) (identity string, revision int64, err error) {
	idx := strings.LastIndex(key, Separator)
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: no separator in %q", ErrMalformedKey, key)
	}

	identity = key[:idx]
	suffix := key[idx+len(Separator):]

	revision, err = strconv.ParseInt(suffix, 10, 64)
	if err != nil || revision < 0 {
		return "", 0, fmt.Errorf("%w: suffix %q is not a non-negative integer", ErrMalformedKey, suffix)
	}

	return identity, revision, nil
}

// IsTemporalKey reports whether key decodes as a temporal key.
func IsTemporalKey(key string) bool {
	_, _, err := DecodeKey(key)
	return err == nil
}

// IsReservedKey reports whether key lives in one of the reserved
// prefixes (history index or configuration documents).
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, HistoryKeyPrefix) || strings.HasPrefix(key, ConfigKeyPrefix)
}

// reservedStems are identities whose temporal keys would land inside a
// reserved key namespace: EncodeKey("history", 1) is byte-identical to
// HistoryKey("1"), so a revision copy would overwrite another
// identity's index document.
var reservedStems = map[string]bool{
	"history": true,
	"config":  true,
}

// ValidateIdentity checks that identity is usable as a stable identity.
//
// Identities containing the separator sequence are rejected: allowing
// them would make temporal keys ambiguous. Reserved namespace stems are
// rejected for the same reason, from the other side: their temporal
// keys collide with history and configuration document keys.
func ValidateIdentity(identity string) error {
	if identity == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidIdentity)
	}
	if strings.Contains(identity, Separator) {
		return fmt.Errorf("%w: %q contains reserved separator %q", ErrInvalidIdentity, identity, Separator)
	}
	if reservedStems[identity] {
		return fmt.Errorf("%w: %q is a reserved namespace stem", ErrInvalidIdentity, identity)
	}
	return nil
}

// HistoryKey derives the history index document key for an identity.
// The derivation is deterministic: one index document per identity.
func HistoryKey(identity string) string {
	return HistoryKeyPrefix + identity
}
