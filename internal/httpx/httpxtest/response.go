// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package httpxtest

import (
	"io"
	"net/http"
	"strings"
)

// Body wraps a string as a response body.
func Body(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

// Status builds a minimal response with the given status code and body.
func Status(code int, body string) *http.Response {
	return &http.Response{
		Status:     http.StatusText(code),
		StatusCode: code,
		Body:       Body(body),
	}
}
