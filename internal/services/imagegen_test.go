package services

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImageGenService_ImageURL(t *testing.T) {
	s := NewImageGenService("https://image.example/", ImageGenOptions{}, quietLogger())

	got := s.ImageURL("Aria on a throne/epic", big.NewInt(42))
	assert.Equal(t, "https://image.example/prompt/Aria%20on%20a%20throne%2Fepic?height=512&nologo=true&seed=42&width=512", got)
}

func TestImageGenService_Generate_Success(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "7", r.URL.Query().Get("seed"))
		assert.Equal(t, "512", r.URL.Query().Get("width"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	}))
	defer server.Close()

	s := NewImageGenService(server.URL, ImageGenOptions{RetryDelay: 0}, quietLogger())
	artifact, ok := s.Generate(context.Background(), "throne", big.NewInt(7))

	require.True(t, ok)
	assert.Equal(t, []byte("\x89PNG fake"), artifact.Data)
	assert.Equal(t, "image/png", artifact.ContentType)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestImageGenService_Generate_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("img"))
	}))
	defer server.Close()

	s := NewImageGenService(server.URL, ImageGenOptions{MaxAttempts: 2, RetryDelay: time.Millisecond}, quietLogger())
	artifact, ok := s.Generate(context.Background(), "scene", big.NewInt(1))

	require.True(t, ok)
	assert.Equal(t, []byte("img"), artifact.Data)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestImageGenService_Generate_ExhaustsOnBadStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := NewImageGenService(server.URL, ImageGenOptions{MaxAttempts: 2, RetryDelay: time.Millisecond}, quietLogger())
	artifact, ok := s.Generate(context.Background(), "scene", big.NewInt(1))

	assert.False(t, ok)
	assert.Nil(t, artifact)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestImageGenService_Generate_TimesOutTwice(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s := NewImageGenService(server.URL, ImageGenOptions{
		Timeout:     50 * time.Millisecond,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	}, quietLogger())

	artifact, ok := s.Generate(context.Background(), "scene", big.NewInt(9))

	assert.False(t, ok)
	assert.Nil(t, artifact)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestImageGenService_Generate_EmptyBodyFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewImageGenService(server.URL, ImageGenOptions{MaxAttempts: 1}, quietLogger())
	_, ok := s.Generate(context.Background(), "scene", big.NewInt(1))
	assert.False(t, ok)
}

func TestImageGenService_Generate_StopsOnCancel(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewImageGenService(server.URL, ImageGenOptions{MaxAttempts: 5, RetryDelay: time.Hour}, quietLogger())

	done := make(chan bool)
	go func() {
		_, ok := s.Generate(ctx, "scene", big.NewInt(1))
		done <- ok
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not return after cancellation")
	}
}
