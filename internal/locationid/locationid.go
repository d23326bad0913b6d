// Package locationid mints and formats the stable opaque location ids that
// identify every peer of a Harmony repository. Syncthing derives its
// DeviceID from a certificate's SHA-256 (internal/protocol/deviceid.go);
// Harmony has no certificate to hash, so a location id is minted once at
// init time the way the original Python implementation did
// (uuid.uuid1().hex) -- translated here to github.com/google/uuid, which
// is already part of the teacher's dependency surface.
package locationid

import "github.com/google/uuid"

// New mints a fresh, globally-unique-with-high-probability location id.
func New() string {
	return uuid.New().String()
}

// Short truncates id for log readability. It is never used for
// comparisons or persisted state -- only for making log lines legible,
// mirroring Repository.short_id / util.shortened_id in the original.
func Short(id string) string {
	if len(id) <= 7 {
		return id
	}
	return id[:7]
}
