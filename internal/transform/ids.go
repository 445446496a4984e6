package transform

import "github.com/google/uuid"

// Name-based UUID namespaces. Jobs and facilities use distinct namespaces so
// the same provider id never yields the same canonical id for both.
var (
	jobNamespace      = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://staffsync.dev/ns/job"))
	facilityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://staffsync.dev/ns/facility"))
)

// JobID returns the canonical id for a provider job id. It is a pure
// function of its input.
func JobID(externalID string) string {
	return uuid.NewSHA1(jobNamespace, []byte(externalID)).String()
}

// FacilityID returns the canonical id for a provider facility id.
func FacilityID(externalID string) string {
	return uuid.NewSHA1(facilityNamespace, []byte(externalID)).String()
}
