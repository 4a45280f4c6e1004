package trace

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Catalog maps symbolic event names to ids.
//
// A nil *Catalog is valid: lookups fail and Format falls back to hex.
type Catalog struct {
	byName map[string]uint32
	byID   map[uint32]string
}

// NewCatalog builds a catalog from a name -> id map.
// Id 0 is reserved for the pattern terminator and rejected, as are two names
// sharing one id.
func NewCatalog(names map[string]uint32) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]uint32, len(names)),
		byID:   make(map[uint32]string, len(names)),
	}

	// Sorted for deterministic error messages.
	keys := make([]string, 0, len(names))
	for name := range names {
		keys = append(keys, name)
	}
	sort.Strings(keys)

	for _, name := range keys {
		id := names[name]
		if name == "" {
			return nil, fmt.Errorf("catalog: empty name for id %s", FormatID(id))
		}
		if id == 0 {
			return nil, fmt.Errorf("catalog: %s uses reserved id 0", name)
		}
		if prev, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catalog: %s and %s share id %s", prev, name, FormatID(id))
		}
		c.byName[name] = id
		c.byID[id] = name
	}
	return c, nil
}

// Lookup returns the id registered under name.
func (c *Catalog) Lookup(name string) (uint32, bool) {
	if c == nil {
		return 0, false
	}
	id, ok := c.byName[name]
	return id, ok
}

// Name returns the name registered for id.
func (c *Catalog) Name(id uint32) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.byID[id]
	return name, ok
}

// Format renders id as "WM_SIZE (0x0005)" when named, otherwise "0x0005".
func (c *Catalog) Format(id uint32) string {
	if name, ok := c.Name(id); ok {
		return fmt.Sprintf("%s (%s)", name, FormatID(id))
	}
	return FormatID(id)
}

// Resolve turns a fixture reference into an id. Accepted forms are a catalog
// name, a decimal number, or a 0x-prefixed hex number.
func (c *Catalog) Resolve(ref string) (uint32, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("empty id")
	}
	if id, ok := c.Lookup(ref); ok {
		return id, nil
	}
	digits, base := ref, 10
	if len(ref) > 2 && (ref[:2] == "0x" || ref[:2] == "0X") {
		digits, base = ref[2:], 16
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown id %q", ref)
	}
	return uint32(n), nil
}
