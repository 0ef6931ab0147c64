/*
 * Copyright 2018-present HiveMQ and the HiveMQ Community
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package trello

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidArgument is returned before any request is made when a caller
// passes an unusable argument.
var ErrInvalidArgument = errors.New("invalid argument")

// HTTPError is a non-2xx response from the Trello API.
type HTTPError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Status     string
	Body       string
	// Message is taken from a JSON error body when the API sends one.
	Message string
}

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	if detail == "" {
		return fmt.Sprintf("%s %s: API request failed with status %s", e.Method, e.Endpoint, status)
	}
	return fmt.Sprintf("%s %s: API request failed with status %s: %s", e.Method, e.Endpoint, status, detail)
}

// RateLimitError is an HTTP 429. It unwraps to the underlying *HTTPError.
type RateLimitError struct {
	*HTTPError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded (retry after %v): %s", e.RetryAfter, e.HTTPError.Error())
	}
	return "rate limit exceeded: " + e.HTTPError.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.HTTPError
}

// ConnectionError is a transport-level failure (DNS, refused connection,
// timeout, cancellation). No response was received.
type ConnectionError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: connection error: %v", e.Method, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// IsNotFound returns true if the API answered 404.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}

// IsRateLimited returns true if the API answered 429.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsConnectionError returns true if the request never got a response.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
