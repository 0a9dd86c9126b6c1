package typesupport

import "sync"

// registry is the process-wide dynamic-type registry. Take paths consult
// it when an endpoint's own introspection cannot decode a sample.
var registry = struct {
	mu    sync.RWMutex
	types map[string]*MessageDescriptor
}{types: make(map[string]*MessageDescriptor)}

// RegisterDynamicType registers a descriptor under its materialized type
// name. Registering again replaces the previous descriptor.
func RegisterDynamicType(d *MessageDescriptor) {
	if d == nil {
		return
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.types[d.TypeName()] = d
}

// UnregisterDynamicType removes the descriptor registered under name
func UnregisterDynamicType(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.types, name)
}

// LookupDynamicType returns the descriptor registered under name, or nil
func LookupDynamicType(name string) *MessageDescriptor {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.types[name]
}

// HasTypeDescriptor reports whether a descriptor is registered under name
func HasTypeDescriptor(name string) bool {
	return LookupDynamicType(name) != nil
}
