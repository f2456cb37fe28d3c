package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_Deterministic(t *testing.T) {
	first := Key("movie", 550, "credits")
	second := Key("movie", 550, "credits")

	assert.Equal(t, "movie:550:credits", first)
	assert.Equal(t, first, second)
}

func TestKey_DistinctRequestsDistinctKeys(t *testing.T) {
	base := Key("movie", 550)

	assert.NotEqual(t, base, Key("movie", 551))
	assert.NotEqual(t, base, Key("movie", 550, "videos"))
	assert.NotEqual(t, Key("movie", 550, "credits"), Key("movie", 550, "videos"))
}

func TestKey_SkipsAbsentComponents(t *testing.T) {
	assert.Equal(t, "movie:550", Key("movie", nil, 550, ""))
	assert.Equal(t, "trending:all:1", Key("trending", "all", nil, 1))
}

func TestKey_OrderSensitive(t *testing.T) {
	assert.NotEqual(t, Key("a", "b"), Key("b", "a"))
}

func TestKey_ParametersChangeKey(t *testing.T) {
	page1 := Key("movies", "popular", "page", 1, "lang", "en-US")
	page2 := Key("movies", "popular", "page", 2, "lang", "en-US")
	german := Key("movies", "popular", "page", 1, "lang", "de-DE")

	assert.NotEqual(t, page1, page2)
	assert.NotEqual(t, page1, german)
}
