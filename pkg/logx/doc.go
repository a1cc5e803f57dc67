// Package logx is croner's structured logging layer.
//
// Logger is a small wrapper on top of zerolog that keeps:
//   - console output readable (short timestamp, short caller) on stderr
//   - file output JSON-structured
//
// Job output is not logged through here; it goes to the printer.
package logx
