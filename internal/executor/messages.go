// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"strconv"
	"strings"
)

// Messages holds the user-facing templates. Placeholders in braces are
// replaced when the message is sent:
//
//	OnCooldown:   {seconds}
//	Usage:        {usage}
//	InvalidValue: {value} {param} {allowed}
type Messages struct {
	PermissionDenied string
	UnknownCommand   string
	OnCooldown       string
	RateLimited      string
	InternalError    string
	Usage            string
	InvalidValue     string
	IdentifiedOnly   string
	AnonymousOnly    string
}

// DefaultMessages returns the built-in English messages.
func DefaultMessages() Messages {
	return Messages{
		PermissionDenied: "You do not have permission to use this command.",
		UnknownCommand:   "Unknown command. Type \"/help\" for help.",
		OnCooldown:       "You must wait {seconds} seconds before using this command again.",
		RateLimited:      "You are sending commands too quickly. Slow down.",
		InternalError:    "An internal error occurred while attempting to perform this command.",
		Usage:            "Usage: {usage}",
		InvalidValue:     "'{value}' is not a valid {param}. Allowed: {allowed}.",
		IdentifiedOnly:   "This command cannot be used from the console.",
		AnonymousOnly:    "This command can only be used from the console.",
	}
}

// merged fills empty fields of m from the defaults.
func (m Messages) merged() Messages {
	d := DefaultMessages()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.PermissionDenied, d.PermissionDenied)
	fill(&m.UnknownCommand, d.UnknownCommand)
	fill(&m.OnCooldown, d.OnCooldown)
	fill(&m.RateLimited, d.RateLimited)
	fill(&m.InternalError, d.InternalError)
	fill(&m.Usage, d.Usage)
	fill(&m.InvalidValue, d.InvalidValue)
	fill(&m.IdentifiedOnly, d.IdentifiedOnly)
	fill(&m.AnonymousOnly, d.AnonymousOnly)
	return m
}

func (m Messages) cooldown(seconds int) string {
	return strings.ReplaceAll(m.OnCooldown, "{seconds}", strconv.Itoa(seconds))
}

func (m Messages) usage(line string) string {
	return strings.ReplaceAll(m.Usage, "{usage}", line)
}

func (m Messages) invalidValue(value, param string, allowed []string) string {
	return strings.NewReplacer(
		"{value}", value,
		"{param}", param,
		"{allowed}", strings.Join(allowed, ", "),
	).Replace(m.InvalidValue)
}
