// Package memory holds the in-process conversation log.
//
// Model:
//   - A Conversation is an append-only sequence of Messages that starts with one system message.
//   - Appends are atomic: a batch is validated as a whole and either lands entirely or not at all.
//   - Tool pairing: every tool message answers exactly one outstanding call of the nearest
//     preceding assistant message, in the order the calls were requested.
//
// Nothing is persisted; the log lives as long as the process.
package memory
