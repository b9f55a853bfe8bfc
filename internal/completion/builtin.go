// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"strconv"
	"strings"
)

// MaxRangeEntries caps the candidates produced by Range.
const MaxRangeEntries = 64

// Range completes integers described by Config as "min-max" or
// "min-max:step". Malformed configs produce nothing.
func Range(req Request) []string {
	lo, hi, step, ok := parseRange(req.Config)
	if !ok {
		return nil
	}

	var out []string
	for n := lo; len(out) < MaxRangeEntries; n += step {
		out = append(out, strconv.Itoa(n))
		// Unsigned distance to hi; n+step would overflow near MaxInt.
		if uint(hi)-uint(n) < uint(step) {
			break
		}
	}
	return out
}

func parseRange(spec string) (lo, hi, step int, ok bool) {
	bounds, stepText, hasStep := strings.Cut(spec, ":")
	step = 1
	if hasStep {
		s, err := strconv.Atoi(stepText)
		if err != nil || s <= 0 {
			return 0, 0, 0, false
		}
		step = s
	}

	// The lower bound may itself be negative, so split on the first '-'
	// after its first character.
	if len(bounds) < 3 {
		return 0, 0, 0, false
	}
	i := strings.Index(bounds[1:], "-")
	if i < 0 {
		return 0, 0, 0, false
	}
	i++

	lo, err := strconv.Atoi(bounds[:i])
	if err != nil {
		return 0, 0, 0, false
	}
	hi, err = strconv.Atoi(bounds[i+1:])
	if err != nil || hi < lo {
		return 0, 0, 0, false
	}
	return lo, hi, step, true
}

// List completes the comma-separated values in Config.
func List(req Request) []string {
	if req.Config == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(req.Config, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Durations offers common durations.
func Durations(Request) []string {
	return []string{"5s", "10s", "30s", "1m", "5m", "10m", "30m", "1h"}
}

// Bools offers boolean words.
func Bools(Request) []string {
	return []string{"true", "false"}
}
