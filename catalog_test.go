package filmzimmer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fawzi-AI/filmzimmer/pkg/kv"
)

const popularMoviesJSON = `{
	"page": 1,
	"results": [
		{"id": 550, "title": "Fight Club", "poster_path": "/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg", "release_date": "1999-10-15", "vote_average": 8.4, "genre_ids": [18, 53]},
		{"id": 680, "title": "Pulp Fiction", "poster_path": "/d5iIlFn5s0ImszYzBPb8JPIfbXD.jpg", "release_date": "1994-09-10", "vote_average": 8.5, "genre_ids": [80, 18]}
	],
	"total_pages": 500,
	"total_results": 10000
}`

const popularTVJSON = `{
	"page": 1,
	"results": [
		{"id": 1396, "name": "Breaking Bad", "poster_path": "/ztkUQFLlC19CCMYHW9o1zWhJRNq.jpg", "first_air_date": "2008-01-20", "vote_average": 8.9}
	],
	"total_pages": 100,
	"total_results": 2000
}`

const trendingJSON = `{
	"page": 1,
	"results": [
		{"media_type": "movie", "id": 550, "title": "Fight Club", "vote_average": 8.4},
		{"media_type": "tv", "id": 1396, "name": "Breaking Bad", "vote_average": 8.9}
	],
	"total_pages": 10,
	"total_results": 200
}`

const movieGenresJSON = `{
	"genres": [
		{"id": 18, "name": "Drama"},
		{"id": 53, "name": "Thriller"},
		{"id": 80, "name": "Crime"}
	]
}`

const movieDetailsJSON = `{
	"id": 550,
	"title": "Fight Club",
	"overview": "A ticking-time-bomb insomniac...",
	"runtime": 139,
	"tagline": "Mischief. Mayhem. Soap.",
	"genres": [{"id": 18, "name": "Drama"}],
	"vote_average": 8.4,
	"imdb_id": "tt0137523"
}`

const notFoundJSON = `{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`

// catalogServer is a counting stub of the upstream API.
type catalogServer struct {
	srv *httptest.Server

	mu        sync.Mutex
	hits      map[string]int
	overrides map[string]func(w http.ResponseWriter)
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()

	s := &catalogServer{
		hits:      make(map[string]int),
		overrides: make(map[string]func(w http.ResponseWriter)),
	}

	routes := map[string]string{
		"/movie/popular":    popularMoviesJSON,
		"/movie/top_rated":  popularMoviesJSON,
		"/tv/popular":       popularTVJSON,
		"/trending/all/day": trendingJSON,
		"/genre/movie/list": movieGenresJSON,
		"/movie/550":        movieDetailsJSON,
		"/search/movie":     popularMoviesJSON,
	}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		override := s.overrides[r.URL.Path]
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json;charset=utf-8")

		if override != nil {
			override(w)
			return
		}
		if body, ok := routes[r.URL.Path]; ok {
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(notFoundJSON))
	}))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *catalogServer) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *catalogServer) respond(path string, fn func(w http.ResponseWriter)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[path] = fn
}

func newTestClient(t *testing.T, srv *catalogServer, opts ...Option) *Client {
	t.Helper()

	base := []Option{
		WithAPIKey("test-key"),
		WithBaseURL(srv.srv.URL),
	}
	client, err := NewClient(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestPopularMovies_DecodesAndCaches(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	list, err := client.PopularMovies(ctx)
	require.NoError(t, err)
	require.Len(t, list.Results, 2)

	assert.Equal(t, 550, list.Results[0].ID)
	assert.Equal(t, "Fight Club", list.Results[0].Title)
	assert.Equal(t, 500, list.TotalPages)
	assert.Equal(t, 1, srv.count("/movie/popular"))

	// Warm call is served from the cache without touching the server.
	again, err := client.PopularMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, list.Results, again.Results)
	assert.Equal(t, 1, srv.count("/movie/popular"))

	// A different page is a different logical request.
	_, err = client.PopularMovies(ctx, WithPage(2))
	require.NoError(t, err)
	assert.Equal(t, 2, srv.count("/movie/popular"))
}

func TestRequestCarriesAPIKeyAndLanguage(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"api_key":  r.URL.Query().Get("api_key"),
			"language": r.URL.Query().Get("language"),
			"page":     r.URL.Query().Get("page"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(popularMoviesJSON))
	}))
	defer srv.Close()

	client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.PopularMovies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-key", query["api_key"])
	assert.Equal(t, "en-US", query["language"])
	assert.Equal(t, "1", query["page"])
}

func TestAPIError_CarriesServerMessage(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv, WithRetryMax(1))

	_, err := client.MovieDetails(context.Background(), 99999999)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "could not be found")
	assert.True(t, IsNotFound(err))
}

func TestAPIError_FallsBackToStatus(t *testing.T) {
	srv := newCatalogServer(t)
	srv.respond("/movie/popular", func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>upstream exploded</html>"))
	})
	client := newTestClient(t, srv, WithRetryMax(1))

	_, err := client.PopularMovies(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Empty(t, apiErr.Message)
	assert.Contains(t, apiErr.Error(), "status 500")
}

func TestSearchMovies_EmptyQueryShortCircuits(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv)

	_, err := client.SearchMovies(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, 0, srv.count("/search/movie"))
}

func TestSearchMovies_QueryInKeyAndParams(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.SearchMovies(ctx, "fight club")
	require.NoError(t, err)
	_, err = client.SearchMovies(ctx, "fight club")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.count("/search/movie"))

	_, err = client.SearchMovies(ctx, "heat")
	require.NoError(t, err)
	assert.Equal(t, 2, srv.count("/search/movie"))
}

func TestTrending_ValidatesParameters(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.Trending(ctx, MediaType("books"), WindowDay)
	assert.ErrorContains(t, err, "invalid media type")

	_, err = client.Trending(ctx, MediaAll, TimeWindow("month"))
	assert.ErrorContains(t, err, "invalid time window")

	assert.Equal(t, 0, srv.count("/trending/all/day"))
}

func TestFailedLoadsAreNotCached(t *testing.T) {
	srv := newCatalogServer(t)
	srv.respond("/movie/popular", func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status_message":"backend down"}`))
	})
	client := newTestClient(t, srv, WithRetryMax(1))
	ctx := context.Background()

	_, err := client.PopularMovies(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, srv.count("/movie/popular"))

	// Once the upstream recovers the client refetches; the failure was
	// never cached.
	srv.respond("/movie/popular", func(w http.ResponseWriter) {
		w.Write([]byte(popularMoviesJSON))
	})

	list, err := client.PopularMovies(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Results, 2)
	assert.Equal(t, 2, srv.count("/movie/popular"))
}

func TestMovieDetails_LanguageChangesKey(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.MovieDetails(ctx, 550)
	require.NoError(t, err)
	_, err = client.MovieDetails(ctx, 550, WithLanguage("de-DE"))
	require.NoError(t, err)
	assert.Equal(t, 2, srv.count("/movie/550"))

	// Both variants are now cached independently.
	_, err = client.MovieDetails(ctx, 550)
	require.NoError(t, err)
	_, err = client.MovieDetails(ctx, 550, WithLanguage("de-DE"))
	require.NoError(t, err)
	assert.Equal(t, 2, srv.count("/movie/550"))
}

func TestBrowse_FansOutAndCaches(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	home, err := client.Browse(ctx)
	require.NoError(t, err)

	require.NotNil(t, home.Trending)
	require.NotNil(t, home.PopularMovies)
	require.NotNil(t, home.TopRatedMovies)
	require.NotNil(t, home.PopularTV)
	require.NotNil(t, home.MovieGenres)

	assert.Equal(t, "Fight Club", home.Trending.Results[0].DisplayTitle())
	assert.Equal(t, "Breaking Bad", home.PopularTV.Results[0].Name)
	assert.Len(t, home.MovieGenres.Genres, 3)

	for _, path := range []string{
		"/trending/all/day", "/movie/popular", "/movie/top_rated",
		"/tv/popular", "/genre/movie/list",
	} {
		assert.Equal(t, 1, srv.count(path), path)
	}

	// A warm Browse is free.
	_, err = client.Browse(ctx)
	require.NoError(t, err)
	for _, path := range []string{
		"/trending/all/day", "/movie/popular", "/movie/top_rated",
		"/tv/popular", "/genre/movie/list",
	} {
		assert.Equal(t, 1, srv.count(path), path)
	}
}

func TestBrowse_PropagatesFirstFailure(t *testing.T) {
	srv := newCatalogServer(t)
	srv.respond("/tv/popular", func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status_message":"shard lost"}`))
	})
	client := newTestClient(t, srv, WithRetryMax(1))

	home, err := client.Browse(context.Background())
	require.Error(t, err)
	assert.Nil(t, home)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	}
}

func TestClearCache_ForcesRefetch(t *testing.T) {
	srv := newCatalogServer(t)
	client := newTestClient(t, srv)
	ctx := context.Background()

	_, err := client.PopularMovies(ctx)
	require.NoError(t, err)
	require.NoError(t, client.ClearCache(ctx, false))

	_, err = client.PopularMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.count("/movie/popular"))
}

func TestPersistentTier_SharedAcrossClients(t *testing.T) {
	srv := newCatalogServer(t)
	store := kv.NewMemoryStore()
	ctx := context.Background()

	first := newTestClient(t, srv, WithStore(store))
	_, err := first.PopularMovies(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	assert.Equal(t, 1, srv.count("/movie/popular"))

	// A fresh client over the same store starts with a cold memory
	// tier but finds the entry in the persistent tier.
	second := newTestClient(t, srv, WithStore(store))
	list, err := second.PopularMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", list.Results[0].Title)
	assert.Equal(t, 1, srv.count("/movie/popular"))
}
