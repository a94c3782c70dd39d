package model

// A Source is where the binary content of a record comes from.
// Exactly one of Remote or Payload is set.
type Source struct {
	Remote      string `json:"remote,omitempty"       msgpack:"remote,omitempty"       codec:"remote,omitempty"`
	Payload     []byte `json:"-"                      msgpack:"payload,omitempty"      codec:"payload,omitempty"`
	ContentType string `json:"content_type,omitempty" msgpack:"content_type,omitempty" codec:"content_type,omitempty"`
}

// RemoteSource returns a source backed by a remote URL.
func RemoteSource(url string) Source {
	return Source{Remote: url}
}

// LocalSource returns a source backed by a local payload.
func LocalSource(payload []byte, contentType string) Source {
	return Source{Payload: payload, ContentType: contentType}
}

// IsLocal returns true when the source holds a local payload.
func (s Source) IsLocal() bool {
	return len(s.Payload) > 0
}

// IsZero returns true when the source holds nothing.
func (s Source) IsZero() bool {
	return s.Remote == "" && len(s.Payload) == 0
}

// Size returns the payload size in bytes, or the length of the remote URL.
func (s Source) Size() int {
	if s.IsLocal() {
		return len(s.Payload)
	}
	return len(s.Remote)
}
