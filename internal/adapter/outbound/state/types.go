package state

import "time"

// documentVersion is written into every document for forward compatibility.
const documentVersion = "1"

// Document is the on-disk representation of a FileStore.
type Document struct {
	// Version is the document schema version (currently "1").
	Version string `json:"version"`

	// Values maps storage keys to their raw string payloads.
	Values map[string]string `json:"values"`

	// UpdatedAt is the time of the last successful write.
	UpdatedAt time.Time `json:"updated_at"`
}

func newDocument() *Document {
	return &Document{
		Version: documentVersion,
		Values:  make(map[string]string),
	}
}
