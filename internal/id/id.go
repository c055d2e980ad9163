// Package id generates identifiers used throughout the conference server:
// nanoids for rooms, topics and proposals, and UUIDs for bus messages.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a 48-character nanoid using an alphanumeric alphabet.
// Used for proposal and topic ids, which are never shown to humans.
func Generate() string {
	return mustGenerate(48)
}

// Short returns an 8-character nanoid suffix, used to build room ids of the
// form "room-<rand8>" when the caller does not supply one.
func Short() string {
	return mustGenerate(8)
}

// Prefixed returns "<prefix>-<rand8>".
func Prefixed(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, Short())
}

func mustGenerate(n int) string {
	v, err := gonanoid.Generate(alphanumeric, n)
	if err != nil {
		panic(fmt.Sprintf("generate nanoid: %v", err))
	}
	return v
}

// BusMessageID returns a globally unique id for a BusMessage, per the wire
// format's requirement that messageId be a uuid.
func BusMessageID() string {
	return uuid.NewString()
}
