package filmzimmer

// Movie is a catalog movie as it appears in list results.
type Movie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	ReleaseDate   string  `json:"release_date"`
	GenreIDs      []int   `json:"genre_ids"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	Adult         bool    `json:"adult"`
}

// TVShow is a catalog TV show as it appears in list results.
type TVShow struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	FirstAirDate string  `json:"first_air_date"`
	GenreIDs     []int   `json:"genre_ids"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
}

// MediaItem is a mixed movie/TV result, as returned by trending and
// multi search. MediaType discriminates; Title is set for movies and
// Name for TV shows.
type MediaItem struct {
	MediaType    string  `json:"media_type"`
	ID           int     `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	GenreIDs     []int   `json:"genre_ids"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
}

// DisplayTitle returns the movie title or TV name, whichever is set.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// MovieList is one page of movie results.
type MovieList struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// TVList is one page of TV show results.
type TVList struct {
	Page         int      `json:"page"`
	Results      []TVShow `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// MediaList is one page of mixed movie/TV results.
type MediaList struct {
	Page         int         `json:"page"`
	Results      []MediaItem `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// Genre is a catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the genre index for one media type.
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// MovieDetails is the full record for a single movie.
type MovieDetails struct {
	Movie
	Genres              []Genre `json:"genres"`
	Runtime             int     `json:"runtime"`
	Tagline             string  `json:"tagline"`
	Status              string  `json:"status"`
	Homepage            string  `json:"homepage"`
	IMDbID              string  `json:"imdb_id"`
	Budget              int64   `json:"budget"`
	Revenue             int64   `json:"revenue"`
	OriginalLanguage    string  `json:"original_language"`
	ProductionCountries []struct {
		ISO31661 string `json:"iso_3166_1"`
		Name     string `json:"name"`
	} `json:"production_countries"`
}

// TVDetails is the full record for a single TV show.
type TVDetails struct {
	TVShow
	Genres           []Genre  `json:"genres"`
	EpisodeRunTime   []int    `json:"episode_run_time"`
	NumberOfSeasons  int      `json:"number_of_seasons"`
	NumberOfEpisodes int      `json:"number_of_episodes"`
	Tagline          string   `json:"tagline"`
	Status           string   `json:"status"`
	Homepage         string   `json:"homepage"`
	InProduction     bool     `json:"in_production"`
	LastAirDate      string   `json:"last_air_date"`
	Networks         []Genre  `json:"networks"`
	CreatedBy        []Person `json:"created_by"`
}

// Person is a cast or crew credit subject.
type Person struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
}

// CastMember is an acting credit on a title.
type CastMember struct {
	Person
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// CrewMember is a production credit on a title.
type CrewMember struct {
	Person
	Job        string `json:"job"`
	Department string `json:"department"`
}

// Credits holds the cast and crew for a title.
type Credits struct {
	ID   int          `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Video is a trailer, teaser or clip attached to a title.
type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// VideoList holds the videos attached to a title.
type VideoList struct {
	ID      int     `json:"id"`
	Results []Video `json:"results"`
}

// Trailer returns the first official YouTube trailer, falling back to
// any YouTube video, or nil when none qualifies.
func (v VideoList) Trailer() *Video {
	var fallback *Video
	for i := range v.Results {
		video := &v.Results[i]
		if video.Site != "YouTube" {
			continue
		}
		if video.Type == "Trailer" && video.Official {
			return video
		}
		if fallback == nil {
			fallback = video
		}
	}
	return fallback
}

// Image base and sizes for building display URLs from the relative
// paths the API returns.
const (
	ImageBaseURL = "https://image.tmdb.org/t/p/"

	PosterSizeSmall    = "w185"
	PosterSizeMedium   = "w342"
	PosterSizeLarge    = "w500"
	BackdropSizeMedium = "w780"
	BackdropSizeLarge  = "w1280"
	ProfileSizeMedium  = "w185"
	ImageSizeOriginal  = "original"
)

// ImageURL joins an image size and a relative image path into a full
// URL. It returns "" for an empty path so callers can fall back to a
// placeholder.
func ImageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return ImageBaseURL + size + path
}
