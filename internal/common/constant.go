package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Remote collection names.
const (
	CollectionExams     = "esame"
	CollectionLessons   = "lezione"
	CollectionPavilions = "padiglione"
)

// Collections lists every collection mirrored by the client.
var Collections = []string{CollectionExams, CollectionLessons, CollectionPavilions}

// IsKnownCollection reports whether name is one of Collections.
func IsKnownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// SnapshotSubject is the NATS subject carrying JSON snapshots of collection.
func SnapshotSubject(collection string) string {
	return "campus.snapshots." + collection
}
