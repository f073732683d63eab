// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package testhelper

import (
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

// integrationEnv enables tests talking to real third-party APIs when set to "true".
const integrationEnv = "TRAILMAP_INTEGRATION_TESTS"

// MockRoundTripper is a http.RoundTripper that hands every request to Fn.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// JSONResponse returns a response with the given status code and JSON body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// PerformIntegrationTests skips the calling test unless integration tests are enabled.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if !strings.EqualFold(os.Getenv(integrationEnv), "true") {
		t.Skipf("skipping integration test, set %s=true to enable", integrationEnv)
	}
}
