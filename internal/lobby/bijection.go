package lobby

import "github.com/marza-dev/odyssey-relay/internal/guid"

// bijection is the guid<->name mapping the Lobby keeps for connected
// players (spec.md §3 "names: bijection<Guid,string>"). Callers provide
// their own synchronization; the Lobby guards every method with its own
// lock since the coordinator is the sole writer (spec.md §3, §5).
type bijection struct {
	idToName map[guid.Guid]string
	nameToID map[string]guid.Guid
}

func newBijection() *bijection {
	return &bijection{
		idToName: make(map[guid.Guid]string),
		nameToID: make(map[string]guid.Guid),
	}
}

func (b *bijection) bind(id guid.Guid, name string) {
	b.idToName[id] = name
	b.nameToID[name] = id
}

func (b *bijection) unbind(id guid.Guid) {
	if name, ok := b.idToName[id]; ok {
		delete(b.nameToID, name)
		delete(b.idToName, id)
	}
}

func (b *bijection) nameOf(id guid.Guid) (string, bool) {
	name, ok := b.idToName[id]
	return name, ok
}

func (b *bijection) hasName(name string) bool {
	_, ok := b.nameToID[name]
	return ok
}

func (b *bijection) hasID(id guid.Guid) bool {
	_, ok := b.idToName[id]
	return ok
}
