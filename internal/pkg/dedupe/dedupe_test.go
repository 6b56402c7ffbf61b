package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type place struct {
	id   string
	name string
}

func placeKey(p place) string { return p.id }

func TestDedupe_FirstSeenWins(t *testing.T) {
	items := []place{
		{id: "node/1", name: "first"},
		{id: "node/2", name: "second"},
		{id: "node/1", name: "duplicate"},
		{id: "node/3", name: "third"},
		{id: "node/2", name: "duplicate"},
	}

	result := Dedupe(items, placeKey)

	assert.Equal(t, []place{
		{id: "node/1", name: "first"},
		{id: "node/2", name: "second"},
		{id: "node/3", name: "third"},
	}, result)
}

func TestDedupe_Idempotent(t *testing.T) {
	items := []place{{id: "a"}, {id: "b"}, {id: "a"}, {id: "c"}, {id: "b"}, {id: "a"}}

	once := Dedupe(items, placeKey)
	twice := Dedupe(once, placeKey)

	assert.Equal(t, once, twice)

	counts := make(map[string]int)
	for _, p := range once {
		counts[p.id]++
	}
	for id, n := range counts {
		assert.Equal(t, 1, n, "key %s must appear exactly once", id)
	}
}

func TestDedupe_EmptyKeysKept(t *testing.T) {
	items := []place{{name: "no id"}, {name: "also no id"}, {id: "x"}}

	assert.Len(t, Dedupe(items, placeKey), 3)
}

func TestDedupe_DoesNotModifyInput(t *testing.T) {
	items := []place{{id: "a", name: "1"}, {id: "a", name: "2"}}
	original := append([]place(nil), items...)

	_ = Dedupe(items, placeKey)

	assert.Equal(t, original, items)
	assert.Empty(t, Dedupe([]place{}, placeKey))
	assert.Nil(t, Dedupe[place](nil, placeKey))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"en", "ar", "fr"}, Strings([]string{"en", "ar", "en", "fr", "ar"}))
}
