package session

import (
	"testing"
	"time"

	"github.com/dgnsrekt/diffjam/internal/gate"
	"github.com/dgnsrekt/diffjam/internal/normalize"
)

func TestSessionIDIsStable(t *testing.T) {
	a := SessionID("GET https://api.example.com/v1/items")
	if a != SessionID("GET https://api.example.com/v1/items") {
		t.Fatalf("SessionID() not deterministic")
	}
	if a == SessionID("POST https://api.example.com/v1/items") {
		t.Fatalf("different keys share an ID")
	}
}

func TestRegistryDeliverPublishesVisibleReports(t *testing.T) {
	g := gate.New(true)
	r := NewRegistry(g, normalize.Normalizer{})

	var events []Event
	r.Subscribe(func(evt Event) { events = append(events, evt) })

	key := "GET https://api.example.com/v1/items"
	res := r.Deliver(key, jsonResp(`{"a":1}`), false)
	if res.Visible || len(events) != 0 {
		t.Fatalf("first delivery: res=%+v events=%d", res, len(events))
	}

	res = r.Deliver(key, jsonResp(`{"a":1}`), false)
	if res.Visible {
		t.Fatalf("repeated first payload must stay hidden")
	}

	res = r.Deliver(key, jsonResp(`{"a":2}`), false)
	if !res.Visible || res.SessionID != SessionID(key) {
		t.Fatalf("second delivery: %+v", res)
	}
	if len(events) != 1 || !events[0].Changed || events[0].Key != key || events[0].Report != res.Report {
		t.Fatalf("events = %+v", events)
	}

	// The pair does not shift on a repeat, so the same report is published again.
	r.Deliver(key, jsonResp(`{"a":2}`), false)
	if len(events) != 2 || events[1].Report != events[0].Report {
		t.Fatalf("repeat delivery events = %+v", events)
	}
}

func TestRegistryEditableSessionsStayHidden(t *testing.T) {
	r := NewRegistry(gate.New(true), normalize.Normalizer{})
	published := 0
	r.Subscribe(func(Event) { published++ })

	r.Deliver("editor", jsonResp(`{"a":1}`), true)
	res := r.Deliver("editor", jsonResp(`{"a":2}`), true)
	if res.Visible || published != 0 {
		t.Fatalf("editable session produced a visible report: %+v", res)
	}
}

func TestRegistryListGetRemove(t *testing.T) {
	r := NewRegistry(gate.New(true), normalize.Normalizer{})

	r.Deliver("GET /old", jsonResp(`{"a":1}`), false)
	time.Sleep(5 * time.Millisecond)
	r.Deliver("GET /new", jsonResp(`{"a":1}`), false)

	infos := r.List()
	if len(infos) != 2 || infos[0].Key != "GET /new" || infos[1].Key != "GET /old" {
		t.Fatalf("List() = %+v; want most recent first", infos)
	}

	id := SessionID("GET /old")
	if _, ok := r.Get(id); !ok {
		t.Fatalf("Get(%q) missing", id)
	}
	if !r.Remove(id) || r.Remove(id) {
		t.Fatalf("Remove() should succeed once")
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d; want 1", r.Count())
	}
}

func TestRegistryEditableDeliveryToReadOnlySessionIsHidden(t *testing.T) {
	r := NewRegistry(gate.New(true), normalize.Normalizer{})
	var events []Event
	r.Subscribe(func(evt Event) { events = append(events, evt) })

	r.Deliver("GET /x", jsonResp(`{"a":1}`), false)
	res := r.Deliver("GET /x", jsonResp(`{"a":2}`), true)
	if res.Visible || len(events) != 0 {
		t.Fatalf("editable delivery visible=%v events=%d report=%q", res.Visible, len(events), res.Report)
	}

	// The editable payload was still tracked, so the next read-only delivery
	// compares against it.
	res = r.Deliver("GET /x", jsonResp(`{"a":3}`), false)
	if !res.Visible || res.Report != "- \"a\": 2\n+ \"a\": 3\n\n" {
		t.Fatalf("read-only delivery = %+v", res)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d; want 1", len(events))
	}
}
