// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gmail

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

// rateLimitReasons are the 403 error reasons the API uses for
// quota-class rejections.  A plain 403 without one of these is an
// authorization problem, not a rate limit.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

// IsRateLimit classifies an error as a rate-limit or quota rejection.
// It checks the typed API error first and falls back to message
// wording, so callers never pattern-match error text themselves.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	switch cause := errors.Cause(err).(type) {
	case *googleapi.Error:
		if cause.Code == http.StatusTooManyRequests {
			return true
		}
		if cause.Code == http.StatusForbidden {
			for _, item := range cause.Errors {
				if rateLimitReasons[item.Reason] {
					return true
				}
			}
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many concurrent requests")
}
