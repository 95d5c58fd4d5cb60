// Package windowing trims conversation history to an input budget without
// separating a tool request from the results that answer it.
package windowing
