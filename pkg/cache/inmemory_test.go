package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFromCache(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	c.Set("price", 21000.25, time.Minute)
	c.Set("name", "MNQ", time.Minute)

	tests := []struct {
		name      string
		cache     Cache
		key       string
		want      float64
		wantFound bool
	}{
		{name: "typed hit", cache: c, key: "price", want: 21000.25, wantFound: true},
		{name: "missing key", cache: c, key: "unknown", want: 0, wantFound: false},
		{name: "wrong type", cache: c, key: "name", want: 0, wantFound: false},
		{name: "nil cache", cache: nil, key: "price", want: 0, wantFound: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := GetFromCache[float64](tt.cache, tt.key)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCache_Independent(t *testing.T) {
	a := NewCache(time.Minute, time.Minute)
	b := NewCache(time.Minute, time.Minute)
	a.Set("k", 1, time.Minute)

	_, found := b.Get("k")
	assert.False(t, found)
}

func TestCache_Delete(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	c.Set("levels_status:MNQ", "cached", time.Minute)
	c.Delete("levels_status:MNQ")
	c.Delete("never-set")

	_, found := c.Get("levels_status:MNQ")
	assert.False(t, found)
}
