// Package findingservice coordinates cache lookups and image conversion for
// the chat bot, the HTTP API and the MCP server.
package findingservice
