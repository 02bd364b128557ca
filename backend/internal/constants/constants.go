package constants

// Graph schema constants
const (
	// PersonLabel is the node label for persons of interest
	PersonLabel = "Person"
	// KnowsRelationship links two persons who know each other.
	// It is stored with an arbitrary direction and always matched undirected.
	KnowsRelationship = "KNOWS"
)

// Query defaults
const (
	// DefaultListLimit caps people listings when the caller passes no limit
	DefaultListLimit = 100
	// NoName is returned by name-valued statistics when nobody qualifies
	NoName = "--"
	// DateLayout is the storage and wire format of birth dates
	DateLayout = "2006-01-02"
)

// Photo store constants
const (
	// PhotoKeyPrefix namespaces photo blobs inside the key-value store
	PhotoKeyPrefix = "photo/"
)
