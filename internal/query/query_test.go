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

package query

import "testing"

func TestString(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
		want string
	}{
		{
			name: "full",
			spec: Spec{
				To:            "invoices@example.com",
				NewerThanDays: 7,
				ExcludeLabels: []string{"CATEGORY_PROMOTIONS", "Zapier Alerts"},
			},
			want: `to:invoices@example.com newer_than:7d -label:CATEGORY_PROMOTIONS -label:"Zapier Alerts"`,
		},
		{
			name: "no labels",
			spec: Spec{To: "invoices@example.com", NewerThanDays: 3},
			want: "to:invoices@example.com newer_than:3d",
		},
		{
			name: "include and exclude",
			spec: Spec{
				To:            "invoices@example.com",
				IncludeLabels: []string{"Vendors"},
				ExcludeLabels: []string{"UNREAD"},
			},
			want: "to:invoices@example.com label:Vendors -label:UNREAD",
		},
		{
			name: "no cutoff",
			spec: Spec{To: "invoices@example.com"},
			want: "to:invoices@example.com",
		},
		{
			name: "empty label skipped",
			spec: Spec{To: "a@b.c", ExcludeLabels: []string{""}},
			want: "to:a@b.c",
		},
		{
			name: "empty",
			spec: Spec{},
			want: "",
		},
	}
	for _, tc := range cases {
		if got := tc.spec.String(); got != tc.want {
			t.Errorf("%s: Spec.String() = %q, want %q", tc.name, got, tc.want)
		}
	}
}
