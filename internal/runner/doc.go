// Package runner drives the tool-augmented conversation loop.
//
// Flow per query:
//
//	list tools -> user(text) -> assistant(tool_calls) -> tool(result)... -> assistant(text)
//
// Invariants:
//   - Every call of an assistant tool request gets exactly one tool message, in request order,
//     before the next completion request is sent.
//   - Tool failures become diagnostic tool messages; only completion failures, an unavailable
//     tool session, cancellation and the round limit end a query with an error.
package runner
