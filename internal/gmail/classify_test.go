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
	"testing"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &googleapi.Error{Code: 429}, true},
		{
			"403 rate reason",
			&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}},
			true,
		},
		{
			"403 other reason",
			&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "insufficientPermissions"}}},
			false,
		},
		{"404", &googleapi.Error{Code: 404}, false},
		{
			"wrapped 429",
			errors.Wrap(&googleapi.Error{Code: 429}, "getting message abc"),
			true,
		},
		{"quota wording", errors.New("Quota exceeded for queries"), true},
		{"concurrency wording", errors.New("Too many concurrent requests for user"), true},
		{"unrelated", errors.New("connection reset by peer"), false},
	}
	for _, tc := range cases {
		if got := IsRateLimit(tc.err); got != tc.want {
			t.Errorf("%s: IsRateLimit(%v) = %v, want %v", tc.name, tc.err, got, tc.want)
		}
	}
}
