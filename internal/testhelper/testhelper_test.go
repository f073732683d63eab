// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package testhelper

import (
	"io"
	"net/http"
	"testing"
)

func TestMockRoundTripper_RoundTrip(t *testing.T) {
	var called bool
	rt := MockRoundTripper{Fn: func(*http.Request) (*http.Response, error) {
		called = true
		return JSONResponse(http.StatusTeapot, `{"ok":true}`), nil
	}}
	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	if err != nil {
		t.Fatalf("failed to create request: %s", err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip failed: %s", err)
	}
	if !called {
		t.Error("expected Fn to be called")
	}
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("expected status %d, got %d", http.StatusTeapot, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %s", resp.Header.Get("Content-Type"))
	}
}

func TestPerformIntegrationTests(t *testing.T) {
	t.Setenv(integrationEnv, "")
	ran := t.Run("skipped without env", func(t *testing.T) {
		PerformIntegrationTests(t)
		t.Error("expected test to be skipped")
	})
	if !ran {
		t.Error("expected skipped subtest to count as passed")
	}
}
