package notify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/diffjam/internal/session"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
	}
}

func TestSendPostsMessageWithTitle(t *testing.T) {
	var receivedMethod, receivedPath, receivedBody, receivedContentType, receivedTitle string

	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedContentType = r.Header.Get("Content-Type")
			receivedTitle = r.Header.Get("Title")
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return okResponse(), nil
		}),
	}

	if err := Send(context.Background(), client, "http://example.com/diffjam", "Diff JAM: GET /x", "- a\n+ b\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/diffjam"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedContentType, "text/plain"; got != want {
		t.Fatalf("content-type = %q; want %q", got, want)
	}
	if got, want := receivedTitle, "Diff JAM: GET /x"; got != want {
		t.Fatalf("title = %q; want %q", got, want)
	}
	if got, want := receivedBody, "- a\n+ b\n"; got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
}

func TestSendReturnsErrorForServerError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	err := Send(context.Background(), client, "http://example.com/diffjam", "", "x")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "notification failed: status=500") {
		t.Fatalf("error = %q; want status 500 message", err)
	}
}

func TestSendDisallowsMissingEndpoint(t *testing.T) {
	if err := Send(context.Background(), http.DefaultClient, "", "", "x"); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestOnReportSkipsUnchangedReports(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	sent := make(chan struct{}, 1)

	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			sent <- struct{}{}
			return okResponse(), nil
		}),
	}
	n := New(client, "http://example.com/diffjam")

	n.OnReport(session.Event{SessionID: "s1", Key: "GET /a", Report: "No changes.", Changed: false})
	n.OnReport(session.Event{SessionID: "s1", Key: "GET /a", Report: "- a\n+ b\n", Changed: true})

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("changed report was not sent")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("calls = %d; want 1", calls)
	}
}

func TestClipLongReports(t *testing.T) {
	long := strings.Repeat("x", maxMessageBytes+10)
	got := clip(long)
	if !strings.HasPrefix(got, strings.Repeat("x", maxMessageBytes)) || !strings.HasSuffix(got, "…") {
		t.Fatalf("clip() did not truncate with marker")
	}
	if clip("short") != "short" {
		t.Fatalf("clip() changed a short message")
	}
}
