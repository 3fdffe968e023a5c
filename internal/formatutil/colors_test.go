// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
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

package formatutil

import "testing"

func TestSetColorMode(t *testing.T) {
	defer SetColorMode(ColorNever) //nolint:errcheck

	if err := SetColorMode(ColorAlways); err != nil {
		t.Fatal(err)
	}
	if got := Red("x"); got != "\033[1;31mx\033[0m" {
		t.Errorf("expected a colored string, got %q", got)
	}
	if err := SetColorMode(ColorNever); err != nil {
		t.Fatal(err)
	}
	if got := Bold("x", 1); got != "x1" {
		t.Errorf("expected a plain string, got %q", got)
	}
	if err := SetColorMode("sometimes"); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
}
