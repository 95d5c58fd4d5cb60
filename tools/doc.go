// Package tools defines the tools served over MCP by cmd/toolserver.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Arithmetic: add, subtract, multiply, divide.
//   - Network: web_search (hosted search API), fetch_url (HTTP GET with HTML cleanup).
//   - Register: expose a set of definitions on an *mcp.Server.
package tools
