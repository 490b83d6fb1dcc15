// Package testutils holds helpers shared by tests across packages.
package testutils

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SkipIfNoDocker skips tb when no Docker daemon socket can be reached.
func SkipIfNoDocker(tb testing.TB) {
	tb.Helper()
	if !DockerIsReachable() {
		tb.Skip("docker is not reachable")
	}
}

// DockerIsReachable reports whether a Docker daemon answers on the usual sockets.
func DockerIsReachable() bool {
	host := os.Getenv("DOCKER_HOST")
	if strings.HasPrefix(host, "unix://") {
		return canDialUnix(strings.TrimPrefix(host, "unix://"))
	}
	if host != "" {
		return true
	}
	if canDialUnix("/var/run/docker.sock") {
		return true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	return canDialUnix(home + "/.docker/run/docker.sock")
}

func canDialUnix(path string) bool {
	if path == "" {
		return false
	}
	conn, err := net.DialTimeout("unix", path, 300*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// MakeRequest sends a request through app and returns the response.
func MakeRequest(tb testing.TB, app *fiber.App, method, path, body string) *http.Response {
	tb.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		tb.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}
