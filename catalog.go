package filmzimmer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Fawzi-AI/filmzimmer/pkg/cache"
	"github.com/Fawzi-AI/filmzimmer/transport"
)

// MediaType selects the catalog slice for trending requests.
type MediaType string

const (
	MediaAll   MediaType = "all"
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// TimeWindow selects the trending aggregation window.
type TimeWindow string

const (
	WindowDay  TimeWindow = "day"
	WindowWeek TimeWindow = "week"
)

// PopularMovies returns the popular movies rail.
func (c *Client) PopularMovies(ctx context.Context, opts ...CallOption) (*MovieList, error) {
	call := c.call(true, opts)
	key := cache.Key("movie", "popular", call.language, call.region, call.page)

	var list MovieList
	if err := c.fetch(ctx, key, TTLCatalog, "/movie/popular", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// TopRatedMovies returns the top rated movies rail.
func (c *Client) TopRatedMovies(ctx context.Context, opts ...CallOption) (*MovieList, error) {
	call := c.call(true, opts)
	key := cache.Key("movie", "top_rated", call.language, call.region, call.page)

	var list MovieList
	if err := c.fetch(ctx, key, TTLCatalog, "/movie/top_rated", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// NowPlayingMovies returns movies currently in theatres; the region
// parameter narrows release dates.
func (c *Client) NowPlayingMovies(ctx context.Context, opts ...CallOption) (*MovieList, error) {
	call := c.call(true, opts)
	key := cache.Key("movie", "now_playing", call.language, call.region, call.page)

	var list MovieList
	if err := c.fetch(ctx, key, TTLCatalog, "/movie/now_playing", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpcomingMovies returns movies opening soon; the region parameter
// narrows release dates.
func (c *Client) UpcomingMovies(ctx context.Context, opts ...CallOption) (*MovieList, error) {
	call := c.call(true, opts)
	key := cache.Key("movie", "upcoming", call.language, call.region, call.page)

	var list MovieList
	if err := c.fetch(ctx, key, TTLCatalog, "/movie/upcoming", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// PopularTV returns the popular TV shows rail.
func (c *Client) PopularTV(ctx context.Context, opts ...CallOption) (*TVList, error) {
	call := c.call(true, opts)
	key := cache.Key("tv", "popular", call.language, call.region, call.page)

	var list TVList
	if err := c.fetch(ctx, key, TTLCatalog, "/tv/popular", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// TopRatedTV returns the top rated TV shows rail.
func (c *Client) TopRatedTV(ctx context.Context, opts ...CallOption) (*TVList, error) {
	call := c.call(true, opts)
	key := cache.Key("tv", "top_rated", call.language, call.region, call.page)

	var list TVList
	if err := c.fetch(ctx, key, TTLCatalog, "/tv/top_rated", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Trending returns the trending rail for a media type over a time
// window.
func (c *Client) Trending(ctx context.Context, media MediaType, window TimeWindow, opts ...CallOption) (*MediaList, error) {
	switch media {
	case MediaAll, MediaMovie, MediaTV:
	default:
		return nil, fmt.Errorf("filmzimmer: invalid media type %q", media)
	}
	switch window {
	case WindowDay, WindowWeek:
	default:
		return nil, fmt.Errorf("filmzimmer: invalid time window %q", window)
	}

	call := c.call(true, opts)
	key := cache.Key("trending", string(media), string(window), call.language, call.page)
	path := fmt.Sprintf("/trending/%s/%s", media, window)

	var list MediaList
	if err := c.fetch(ctx, key, TTLVolatile, path, c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SearchMovies searches movies by title. A blank query is rejected
// before any cache or network touch.
func (c *Client) SearchMovies(ctx context.Context, query string, opts ...CallOption) (*MovieList, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	call := c.call(true, opts)
	key := cache.Key("search", "movie", query, call.language, call.page)

	params := c.params(call)
	params.Set("query", query)

	var list MovieList
	if err := c.fetch(ctx, key, TTLVolatile, "/search/movie", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SearchTV searches TV shows by name.
func (c *Client) SearchTV(ctx context.Context, query string, opts ...CallOption) (*TVList, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	call := c.call(true, opts)
	key := cache.Key("search", "tv", query, call.language, call.page)

	params := c.params(call)
	params.Set("query", query)

	var list TVList
	if err := c.fetch(ctx, key, TTLVolatile, "/search/tv", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SearchMulti searches movies and TV shows together; results carry a
// media_type discriminator.
func (c *Client) SearchMulti(ctx context.Context, query string, opts ...CallOption) (*MediaList, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	call := c.call(true, opts)
	key := cache.Key("search", "multi", query, call.language, call.page)

	params := c.params(call)
	params.Set("query", query)

	var list MediaList
	if err := c.fetch(ctx, key, TTLVolatile, "/search/multi", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// MovieDetails returns the full record for one movie.
func (c *Client) MovieDetails(ctx context.Context, id int, opts ...CallOption) (*MovieDetails, error) {
	call := c.call(false, opts)
	key := cache.Key("movie", id, call.language)

	var details MovieDetails
	if err := c.fetch(ctx, key, TTLDetails, "/movie/"+strconv.Itoa(id), c.params(call), &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// TVDetails returns the full record for one TV show.
func (c *Client) TVDetails(ctx context.Context, id int, opts ...CallOption) (*TVDetails, error) {
	call := c.call(false, opts)
	key := cache.Key("tv", id, call.language)

	var details TVDetails
	if err := c.fetch(ctx, key, TTLDetails, "/tv/"+strconv.Itoa(id), c.params(call), &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// MovieCredits returns the cast and crew for a movie.
func (c *Client) MovieCredits(ctx context.Context, id int, opts ...CallOption) (*Credits, error) {
	call := c.call(false, opts)
	key := cache.Key("movie", id, "credits", call.language)

	var credits Credits
	if err := c.fetch(ctx, key, TTLDetails, "/movie/"+strconv.Itoa(id)+"/credits", c.params(call), &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// TVCredits returns the cast and crew for a TV show.
func (c *Client) TVCredits(ctx context.Context, id int, opts ...CallOption) (*Credits, error) {
	call := c.call(false, opts)
	key := cache.Key("tv", id, "credits", call.language)

	var credits Credits
	if err := c.fetch(ctx, key, TTLDetails, "/tv/"+strconv.Itoa(id)+"/credits", c.params(call), &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// MovieVideos returns the trailers and clips attached to a movie.
func (c *Client) MovieVideos(ctx context.Context, id int, opts ...CallOption) (*VideoList, error) {
	call := c.call(false, opts)
	key := cache.Key("movie", id, "videos", call.language)

	var videos VideoList
	if err := c.fetch(ctx, key, TTLDetails, "/movie/"+strconv.Itoa(id)+"/videos", c.params(call), &videos); err != nil {
		return nil, err
	}
	return &videos, nil
}

// TVVideos returns the trailers and clips attached to a TV show.
func (c *Client) TVVideos(ctx context.Context, id int, opts ...CallOption) (*VideoList, error) {
	call := c.call(false, opts)
	key := cache.Key("tv", id, "videos", call.language)

	var videos VideoList
	if err := c.fetch(ctx, key, TTLDetails, "/tv/"+strconv.Itoa(id)+"/videos", c.params(call), &videos); err != nil {
		return nil, err
	}
	return &videos, nil
}

// SimilarMovies returns movies similar to the given one.
func (c *Client) SimilarMovies(ctx context.Context, id int, opts ...CallOption) (*MovieList, error) {
	call := c.call(true, opts)
	key := cache.Key("movie", id, "similar", call.language, call.page)

	var list MovieList
	if err := c.fetch(ctx, key, TTLDetails, "/movie/"+strconv.Itoa(id)+"/similar", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// MovieRecommendations returns recommendations for the given movie.
func (c *Client) MovieRecommendations(ctx context.Context, id int, opts ...CallOption) (*MovieList, error) {
	call := c.call(true, opts)
	key := cache.Key("movie", id, "recommendations", call.language, call.page)

	var list MovieList
	if err := c.fetch(ctx, key, TTLDetails, "/movie/"+strconv.Itoa(id)+"/recommendations", c.params(call), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DiscoverMoviesByGenre lists movies in a genre, most popular first.
func (c *Client) DiscoverMoviesByGenre(ctx context.Context, genreID int, opts ...CallOption) (*MovieList, error) {
	call := c.call(true, opts)
	key := cache.Key("discover", "movie", genreID, call.language, call.page)

	params := c.params(call)
	params.Set("with_genres", strconv.Itoa(genreID))
	params.Set("sort_by", "popularity.desc")

	var list MovieList
	if err := c.fetch(ctx, key, TTLCatalog, "/discover/movie", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// MovieGenres returns the movie genre index.
func (c *Client) MovieGenres(ctx context.Context, opts ...CallOption) (*GenreList, error) {
	call := c.call(false, opts)
	key := cache.Key("genres", "movie", call.language)

	var genres GenreList
	if err := c.fetch(ctx, key, TTLReference, "/genre/movie/list", c.params(call), &genres); err != nil {
		return nil, err
	}
	return &genres, nil
}

// TVGenres returns the TV genre index.
func (c *Client) TVGenres(ctx context.Context, opts ...CallOption) (*GenreList, error) {
	call := c.call(false, opts)
	key := cache.Key("genres", "tv", call.language)

	var genres GenreList
	if err := c.fetch(ctx, key, TTLReference, "/genre/tv/list", c.params(call), &genres); err != nil {
		return nil, err
	}
	return &genres, nil
}

// HomePage aggregates the rails the front page renders.
type HomePage struct {
	Trending       *MediaList
	PopularMovies  *MovieList
	TopRatedMovies *MovieList
	PopularTV      *TVList
	MovieGenres    *GenreList
}

// Browse fetches the home page rails concurrently. Requests for
// different rails are independent; the first failure cancels the rest
// and propagates. Cached rails resolve without any network call, so a
// warm Browse costs nothing.
func (c *Client) Browse(ctx context.Context, opts ...CallOption) (*HomePage, error) {
	ctx, span := transport.StartSpan(ctx, "filmzimmer.browse")
	defer span.End()

	var home HomePage
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		home.Trending, err = c.Trending(gctx, MediaAll, WindowDay, opts...)
		return err
	})
	g.Go(func() error {
		var err error
		home.PopularMovies, err = c.PopularMovies(gctx, opts...)
		return err
	})
	g.Go(func() error {
		var err error
		home.TopRatedMovies, err = c.TopRatedMovies(gctx, opts...)
		return err
	})
	g.Go(func() error {
		var err error
		home.PopularTV, err = c.PopularTV(gctx, opts...)
		return err
	})
	g.Go(func() error {
		var err error
		home.MovieGenres, err = c.MovieGenres(gctx, opts...)
		return err
	})

	if err := g.Wait(); err != nil {
		transport.RecordError(ctx, err)
		return nil, err
	}
	return &home, nil
}
