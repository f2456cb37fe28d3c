package filmzimmer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient()
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	client, err := NewClient(WithAPIKey("k"))
	require.NoError(t, err)
	client.Close()
}

func mintToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "account", "exp": expiry.Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestNewClient_RejectsExpiredAccessToken(t *testing.T) {
	_, err := NewClient(WithAccessToken(mintToken(t, time.Now().Add(-time.Hour))))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token")
}

func TestNewClient_BearerTokenOnRequests(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"genres":[]}`))
	}))
	defer srv.Close()

	token := mintToken(t, time.Now().Add(time.Hour))
	client, err := NewClient(WithAccessToken(token), WithBaseURL(srv.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.MovieGenres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, auth)
}

func TestAPIErrorFormatting(t *testing.T) {
	withMessage := &APIError{StatusCode: 404, Message: "The resource you requested could not be found."}
	assert.Contains(t, withMessage.Error(), "could not be found")
	assert.Contains(t, withMessage.Error(), "404")

	bare := &APIError{StatusCode: 502}
	assert.Equal(t, "api: status 502", bare.Error())
}

func TestImageURL(t *testing.T) {
	assert.Equal(t,
		"https://image.tmdb.org/t/p/w342/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg",
		ImageURL(PosterSizeMedium, "/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg"))
	assert.Equal(t, "", ImageURL(PosterSizeMedium, ""))
}

func TestVideoList_Trailer(t *testing.T) {
	videos := VideoList{Results: []Video{
		{Key: "clip1", Site: "YouTube", Type: "Clip"},
		{Key: "vimeo1", Site: "Vimeo", Type: "Trailer", Official: true},
		{Key: "trailer1", Site: "YouTube", Type: "Trailer", Official: true},
	}}

	trailer := videos.Trailer()
	require.NotNil(t, trailer)
	assert.Equal(t, "trailer1", trailer.Key)

	noOfficial := VideoList{Results: []Video{
		{Key: "clip1", Site: "YouTube", Type: "Clip"},
	}}
	fallback := noOfficial.Trailer()
	require.NotNil(t, fallback)
	assert.Equal(t, "clip1", fallback.Key)

	assert.Nil(t, VideoList{}.Trailer())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("FILMZIMMER_API_KEY", "env-key")
	t.Setenv("FILMZIMMER_LANGUAGE", "fr-FR")
	t.Setenv("FILMZIMMER_REQUEST_TIMEOUT", "3s")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "fr-FR", cfg.Language)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.BaseURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 35, cfg.RateBurst)
}
