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

// Package formatutil colors the output of the command line tool.
package formatutil

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ColorMode tells when to color the output
type ColorMode string

const (
	// ColorAuto colors the output when the standard error is a terminal and NO_COLOR is unset
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

var enabled = autoColors()

var (
	Bold   = Color("\033[1m%s\033[0m")
	Faint  = Color("\033[2m%s\033[0m")
	Red    = Color("\033[1;31m%s\033[0m")
	Green  = Color("\033[1;32m%s\033[0m")
	Yellow = Color("\033[1;33m%s\033[0m")
)

func autoColors() bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	return !noColor && term.IsTerminal(int(os.Stderr.Fd()))
}

// SetColorMode sets when the functions returned by Color add escape sequences
func SetColorMode(mode ColorMode) error {
	switch mode {
	case ColorAuto:
		enabled = autoColors()
	case ColorAlways:
		enabled = true
	case ColorNever:
		enabled = false
	default:
		return fmt.Errorf("color mode must be %s, %s or %s, not %q", ColorAuto, ColorAlways, ColorNever, mode)
	}
	return nil
}

// Color returns a function formatting its arguments in the manner of Sprint, wrapped in the escape sequences of
// colorString when colors are enabled
func Color(colorString string) func(...interface{}) string {
	return func(args ...interface{}) string {
		if enabled {
			return fmt.Sprintf(colorString, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}
