// Package server exposes the formula cleaning tools over MCP (Model Context
// Protocol).
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - formula_info: Dimensions, format and ink statistics of an image
//   - formula_holes: Per-hole features and fill/protect verdicts
//   - formula_fill: Fill thin holes in one image
//   - formula_batch: Fill thin holes in every matching image of a directory
//   - formula_overlay: Visualize hole decisions as a PNG
//   - formula_binarize: Edge-based binarization of a scan
//   - formula_compare: Pixel difference between two images
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the server. Tools
// that rewrite a file evict it; formula_batch clears the whole cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. Malformed requests get -32700 and
// unknown methods -32601.
package server
