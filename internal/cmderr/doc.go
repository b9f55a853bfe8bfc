// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmderr defines the structured errors produced while resolving and
// dispatching commands.
//
// Errors fall into three groups:
//
//   - Gate errors (PermissionDeniedError, OnCooldownError, RateLimitedError,
//     CommandNotFoundError) are produced and reported by the executor itself.
//   - Argument errors (NotEnoughArgumentsError, InvalidValueError,
//     ResolutionError, ValidationError, InvokerMismatchError) describe a
//     mistake by the invoker and are shown to them.
//   - UnsupportedArgumentTypeError is a configuration error. It is logged
//     server-side and the invoker only sees a generic message.
//
// Handlers report their own user-facing failures with User:
//
//	if balance < cost {
//	    return cmderr.User("You cannot afford that.")
//	}
package cmderr
