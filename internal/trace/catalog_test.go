package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_LookupAndFormat(t *testing.T) {
	c, err := NewCatalog(map[string]uint32{"WM_CREATE": 1, "WM_SIZE": 5})
	require.NoError(t, err)

	id, ok := c.Lookup("WM_SIZE")
	require.True(t, ok)
	assert.Equal(t, uint32(5), id)

	assert.Equal(t, "WM_CREATE (0x0001)", c.Format(1))
	assert.Equal(t, "0x0063", c.Format(99))
	name, ok := c.Name(5)
	require.True(t, ok)
	assert.Equal(t, "WM_SIZE", name)
}

func TestCatalog_Nil(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("WM_CREATE")
	assert.False(t, ok)
	assert.Equal(t, "0x0010", c.Format(16))
	_, ok = c.Name(16)
	assert.False(t, ok)

	id, err := c.Resolve("0x10")
	require.NoError(t, err)
	assert.Equal(t, uint32(16), id)
}

func TestCatalog_Resolve(t *testing.T) {
	c, err := NewCatalog(map[string]uint32{"WM_PAINT": 0x000f})
	require.NoError(t, err)

	tests := []struct {
		ref  string
		want uint32
		err  string
	}{
		{"WM_PAINT", 0x0f, ""},
		{"15", 15, ""},
		{"0x20", 0x20, ""},
		{"0X1f", 0x1f, ""},
		{"010", 10, ""},
		{"0b11", 0, `unknown id "0b11"`},
		{"0o17", 0, `unknown id "0o17"`},
		{"1_000", 0, `unknown id "1_000"`},
		{"0x", 0, `unknown id "0x"`},
		{"0x1_0", 0, `unknown id "0x1_0"`},
		{"4294967296", 0, `unknown id "4294967296"`},
		{"WM_NOPE", 0, `unknown id "WM_NOPE"`},
		{"", 0, "empty id"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := c.Resolve(tt.ref)
			if tt.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := NewCatalog(map[string]uint32{"ZERO": 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved id 0")

	_, err = NewCatalog(map[string]uint32{"A": 3, "B": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share id 0x0003")
}
