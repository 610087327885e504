package message

// Registry is a folder's identity index. It resolves the non-owning links
// between handles and messages (by Message-ID, or by backing filename and
// number) so that lazy promotion is observed by every outstanding handle
// instead of producing silent duplicate parses.
type Registry struct {
	byID  map[string]*Message
	byLoc map[locKey]*Message
}

type locKey struct {
	filename string
	number   int
}

func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[string]*Message),
		byLoc: make(map[locKey]*Message),
	}
}

// Resolve returns the message registered under the given Message-ID.
func (r *Registry) Resolve(id string) (*Message, bool) {
	m, ok := r.byID[normalizeID(id)]
	return m, ok
}

// Lookup returns the message registered under a backing filename and number.
func (r *Registry) Lookup(filename string, number int) (*Message, bool) {
	m, ok := r.byLoc[locKey{filename: filename, number: number}]
	return m, ok
}

// Register records a complete message under its Message-ID and location.
func (r *Registry) Register(m *Message) {
	if id := m.MessageID(); id != "" {
		r.byID[id] = m
	}

	if m.loc.Filename != "" {
		r.registerLoc(m.loc, m)
	}
}

// RegisterLocation records a message under its current location and any
// identity it already has, without forcing an unloaded message to learn its
// Message-ID. Folders use it when renumbering.
func (r *Registry) RegisterLocation(m *Message) {
	if m.loc.Filename != "" {
		r.registerLoc(m.loc, m)
	}

	if m.id != "" {
		r.byID[m.id] = m
	}
}

// Forget drops a message from the index, e.g. when it leaves the folder.
func (r *Registry) Forget(m *Message) {
	if m.id != "" {
		delete(r.byID, m.id)
	}

	if m.loc.Filename != "" {
		delete(r.byLoc, locKey{filename: m.loc.Filename, number: m.loc.Number})
	}
}

func (r *Registry) registerID(id string, m *Message) {
	if id != "" {
		r.byID[id] = m
	}
}

func (r *Registry) registerLoc(loc Location, m *Message) {
	r.byLoc[locKey{filename: loc.Filename, number: loc.Number}] = m
}
