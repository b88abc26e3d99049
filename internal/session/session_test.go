package session

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dgnsrekt/diffjam/internal/diff"
	"github.com/dgnsrekt/diffjam/internal/gate"
	"github.com/dgnsrekt/diffjam/internal/normalize"
	"github.com/dgnsrekt/diffjam/internal/types"
)

func jsonResp(body string) types.Payload {
	head := "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n"
	return types.NewPayload([]byte(head+body), len(head), false)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestPaneContract(t *testing.T) {
	g := gate.New(true)
	var pane Pane = New("id", "GET /a", g, normalize.Normalizer{}, false)

	first := jsonResp(`{"id":7,"name":"alpha","tags":["x"]}`)
	if pane.ShouldShow(first) {
		t.Fatalf("ShouldShow(first) = true")
	}
	pane.OnPayload(first)
	if got := pane.Report(); got != diff.NoChanges {
		t.Fatalf("Report() before pair is full = %q", got)
	}

	second := jsonResp(`{"id":7,"name":"beta","tags":["x"]}`)
	if !pane.ShouldShow(second) {
		t.Fatalf("ShouldShow(second) = false")
	}
	pane.OnPayload(second)
	if got, want := pane.Report(), "- \"name\": \"alpha\",\n+ \"name\": \"beta\",\n\n"; got != want {
		t.Fatalf("Report() = %q; want %q", got, want)
	}
}

func TestFormattingOnlyChangeReportsNoChanges(t *testing.T) {
	s := New("id", "GET /a", gate.New(true), normalize.Normalizer{}, false)
	s.Deliver(jsonResp(`{"a":1,"b":[1,2]}`))
	if !s.Deliver(jsonResp("{ \"a\" : 1 ,\n \"b\" : [ 1 , 2 ] }")) {
		t.Fatalf("distinct bytes must fill the pair and show the view")
	}
	if got := s.Report(); got != diff.NoChanges {
		t.Fatalf("Report() = %q; want %q", got, diff.NoChanges)
	}
}

func TestGateOffRendersNoChanges(t *testing.T) {
	g := gate.New(true)
	s := New("id", "GET /a", g, normalize.Normalizer{}, false)
	s.Deliver(jsonResp(`{"a":1}`))
	s.Deliver(jsonResp(`{"a":2}`))

	g.Toggle()
	s.OnPayload(jsonResp(`{"a":3}`))
	if got := s.Report(); got != diff.NoChanges {
		t.Fatalf("Report() with gate off = %q", got)
	}
}

func TestParseFailureIsLoggedAndCompared(t *testing.T) {
	logs := captureLogs(t)
	s := New("sid", "GET /a", gate.New(true), normalize.Normalizer{}, false)

	s.Deliver(jsonResp(`{"a":1`))
	s.Deliver(jsonResp(`{"a":2`))

	if got, want := s.Report(), "- {\"a\":1\n+ {\"a\":2\n\n"; got != want {
		t.Fatalf("Report() = %q; want %q", got, want)
	}
	if !strings.Contains(logs.String(), "Problem parsing data in body") {
		t.Fatalf("parse failure not logged: %s", logs.String())
	}
}

func TestReportAsUnified(t *testing.T) {
	s := New("id", "GET /a", gate.New(true), normalize.Normalizer{}, false)
	s.Deliver(jsonResp(`{"a":1}`))
	s.Deliver(jsonResp(`{"a":2}`))

	got := s.ReportAs(diff.FormatUnified)
	for _, want := range []string{"--- GET /a (previous)", "+++ GET /a (current)", "-    \"a\": 1", "+    \"a\": 2"} {
		if !strings.Contains(got, want) {
			t.Fatalf("ReportAs(unified) missing %q:\n%s", want, got)
		}
	}
	if s.ReportAs(diff.FormatGrouped) != s.Report() {
		t.Fatalf("ReportAs(grouped) differs from Report()")
	}
}

func TestInfoAndReset(t *testing.T) {
	s := New("id", "GET /a", gate.New(true), normalize.Normalizer{}, true)
	s.Deliver(jsonResp(`{"a":1}`))
	s.Deliver(jsonResp(`{"a":2}`))

	info := s.Info()
	if info.State != "full" || !info.Editable || info.Visible || info.Observations != 2 {
		t.Fatalf("Info() = %+v", info)
	}

	s.Reset()
	info = s.Info()
	if info.State != "empty" || info.Changed || s.Report() != diff.NoChanges {
		t.Fatalf("Info() after Reset = %+v", info)
	}
}

func TestTextForPlainBody(t *testing.T) {
	head := "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n"
	p := types.NewPayload([]byte(head+"<p>hi</p>"), len(head), false)
	text, err := Text(normalize.Normalizer{}, p)
	if err != nil || text != "<p>hi</p>" {
		t.Fatalf("Text() = %q, %v; want body only", text, err)
	}
}

func TestConcurrentDeliveries(t *testing.T) {
	s := New("id", "GET /a", gate.New(true), normalize.Normalizer{}, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Deliver(jsonResp(`{"n":` + strings.Repeat("1", i+1) + `}`))
		}(i)
	}
	wg.Wait()

	pair := s.Pair()
	if pair.State.String() != "full" || pair.Previous.Equal(pair.Current) {
		t.Fatalf("pair after concurrent deliveries = %+v", pair.State)
	}
}

func TestDeliveryUsesOneGateReading(t *testing.T) {
	g := gate.New(true)
	s := New("id", "GET /a", g, normalize.Normalizer{}, false)

	s.observe(jsonResp(`{"a":1}`), true, false)
	if !s.observe(jsonResp(`{"a":2}`), true, false) {
		t.Fatalf("observe() with gate on = false")
	}
	// A toggle after the visibility decision must not turn the render into
	// "No changes.".
	g.Toggle()
	s.render(jsonResp(`{"a":2}`), true)
	if got := s.Report(); got == diff.NoChanges {
		t.Fatalf("render() re-read the gate")
	}

	if s.DeliverAs(jsonResp(`{"a":3}`), false) {
		t.Fatalf("DeliverAs() with gate off = true")
	}
	if pair := s.Pair(); !pair.Current.Equal(jsonResp(`{"a":2}`)) {
		t.Fatalf("gate off delivery was recorded")
	}
}
