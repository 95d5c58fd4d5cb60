// Package toolsession connects to a remote MCP server and exposes its tools.
//
// A Session must be connected before use. ListTools refreshes the name -> tool
// table that CallTool dispatches against; names the server did not advertise are
// rejected locally. Connection loss surfaces as ErrSessionUnavailable, anything
// that goes wrong with a single call surfaces as *ToolInvocationError.
package toolsession
