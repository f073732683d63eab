// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler(t *testing.T) {
	FixesReceived.Inc()
	Transitions.WithLabelValues("tracking").Inc()

	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %s", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics: %s", err)
	}
	for _, want := range []string{
		"trailmap_position_fixes_received_total",
		`trailmap_session_transitions_total{phase="tracking"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics to contain %s", want)
		}
	}
}
