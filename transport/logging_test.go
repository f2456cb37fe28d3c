package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestLogging(t *testing.T) {
	t.Run("successful request logs at info", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		logger, logs := observedLogger()
		client := &http.Client{
			Transport: Logging(WithLogger(logger))(http.DefaultTransport),
		}

		resp, err := client.Get(srv.URL + "/movie/popular?api_key=secret123&language=en-US")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		entries := logs.FilterMessage("api request completed").All()
		if len(entries) != 1 {
			t.Fatalf("expected 1 completion log, got %d", len(entries))
		}

		entry := entries[0]
		if entry.Level != zapcore.InfoLevel {
			t.Errorf("expected info level, got %v", entry.Level)
		}

		fields := entry.ContextMap()
		if fields["endpoint"] != "/movie/popular" {
			t.Errorf("unexpected endpoint field: %v", fields["endpoint"])
		}
		if fields["status"] != int64(http.StatusOK) {
			t.Errorf("unexpected status field: %v", fields["status"])
		}
		if _, ok := fields["duration_ms"]; !ok {
			t.Error("expected a duration_ms field")
		}
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		logger, logs := observedLogger()
		client := &http.Client{
			Transport: Logging(WithLogger(logger))(http.DefaultTransport),
		}

		resp, err := client.Get(srv.URL + "/movie/popular")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if n := logs.FilterMessage("api request failed").Len(); n != 1 {
			t.Fatalf("expected 1 failure log, got %d", n)
		}
		if logs.FilterMessage("api request failed").All()[0].Level != zapcore.ErrorLevel {
			t.Error("expected error level for a 5xx response")
		}
	})

	t.Run("client errors log at warn level", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		logger, logs := observedLogger()
		client := &http.Client{
			Transport: Logging(WithLogger(logger))(http.DefaultTransport),
		}

		resp, err := client.Get(srv.URL + "/movie/999999")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if n := logs.FilterMessage("api request rejected").Len(); n != 1 {
			t.Fatalf("expected 1 rejection log, got %d", n)
		}
		if logs.FilterMessage("api request rejected").All()[0].Level != zapcore.WarnLevel {
			t.Error("expected warn level for a 4xx response")
		}
	})

	t.Run("api key is redacted from logged url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		logger, logs := observedLogger()
		client := &http.Client{
			Transport: Logging(WithLogger(logger))(http.DefaultTransport),
		}

		resp, err := client.Get(srv.URL + "/search/movie?api_key=secret123&query=batman")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		entry := logs.All()[0]
		url, _ := entry.ContextMap()["url"].(string)
		if url == "" {
			t.Fatal("expected a url field")
		}
		if strings.Contains(url, "secret123") {
			t.Errorf("logged url leaks the api key: %s", url)
		}
		if !strings.Contains(url, "query=batman") {
			t.Errorf("non-sensitive parameters should survive redaction: %s", url)
		}
	})

	t.Run("transport error logs the error", func(t *testing.T) {
		boom := errors.New("connection reset")
		logger, logs := observedLogger()

		rt := Logging(WithLogger(logger))(RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return nil, boom
		}))

		req := httptest.NewRequest(http.MethodGet, "http://api.test/movie/popular", nil)
		if _, err := rt.RoundTrip(req); !errors.Is(err, boom) {
			t.Fatalf("expected the transport error back, got %v", err)
		}

		entries := logs.FilterMessage("api request failed").All()
		if len(entries) != 1 {
			t.Fatalf("expected 1 failure log, got %d", len(entries))
		}
	})

	t.Run("start log is opt-in", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		logger, logs := observedLogger()
		client := &http.Client{
			Transport: Logging(WithLogger(logger), WithStartLog())(http.DefaultTransport),
		}

		resp, err := client.Get(srv.URL + "/movie/popular")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if n := logs.FilterMessage("api request started").Len(); n != 1 {
			t.Fatalf("expected 1 start log, got %d", n)
		}
	})
}
