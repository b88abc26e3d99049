package relay

import (
	"fmt"
	"net/http"
	"strings"
)

// parseSessionFilter reads ?sessions=id1,id2. nil accepts everything.
func parseSessionFilter(r *http.Request) map[string]bool {
	q := r.URL.Query().Get("sessions")
	if q == "" {
		return nil
	}
	filter := make(map[string]bool)
	for _, id := range strings.Split(q, ",") {
		if id = strings.TrimSpace(id); id != "" {
			filter[id] = true
		}
	}
	return filter
}

// SSEHandler streams report events as server-sent events named "report".
func SSEHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}
		filter := parseSessionFilter(r)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if filter != nil && !filter[evt.Session] {
					continue
				}
				fmt.Fprintf(w, "event: report\ndata: %s\n\n", evt.Data)
				flusher.Flush()
			}
		}
	}
}
