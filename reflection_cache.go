package nasc

import (
	"reflect"
	"sync"
)

// reflectionCache caches reflection metadata to avoid repeated type analysis.
type reflectionCache struct {
	mu sync.RWMutex

	// Struct field cache for struct construction and auto-wiring
	fields map[reflect.Type][]fieldInfo
}

// fieldInfo stores metadata about a struct field.
type fieldInfo struct {
	index   int
	name    string
	typ     reflect.Type
	tagged  bool // carries an inject tag
	options tagOptions
}

// injectable reports whether the field takes part in struct construction.
func (f fieldInfo) injectable() bool {
	return !f.options.skip
}

// newReflectionCache creates a new reflection cache.
func newReflectionCache() *reflectionCache {
	return &reflectionCache{
		fields: make(map[reflect.Type][]fieldInfo),
	}
}

// getFieldInfo retrieves or computes the exported fields of a struct type.
// Pointer types are dereferenced; non-struct types have no fields.
func (rc *reflectionCache) getFieldInfo(typ reflect.Type) []fieldInfo {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	// Fast path: check cache with read lock
	rc.mu.RLock()
	fields, exists := rc.fields[typ]
	rc.mu.RUnlock()

	if exists {
		return fields
	}

	// Slow path: compute and cache with write lock
	rc.mu.Lock()
	defer rc.mu.Unlock()

	// Double-check after acquiring write lock
	if fields, exists = rc.fields[typ]; exists {
		return fields
	}

	if typ.Kind() != reflect.Struct {
		rc.fields[typ] = nil
		return nil
	}

	numFields := typ.NumField()
	fields = make([]fieldInfo, 0, numFields)

	for i := 0; i < numFields; i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}

		tag, hasInjectTag := field.Tag.Lookup("inject")
		fields = append(fields, fieldInfo{
			index:   i,
			name:    field.Name,
			typ:     field.Type,
			tagged:  hasInjectTag,
			options: parseInjectTag(tag),
		})
	}

	rc.fields[typ] = fields
	return fields
}
