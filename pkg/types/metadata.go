package types

// Metadata is the arbitrary key-value blob persisted on orders (jsonb via the
// gorm json serializer). Values are strings so the blob round-trips losslessly
// through the host platform's metadata surface.
type Metadata map[string]string

// Clone returns a copy safe to mutate.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
