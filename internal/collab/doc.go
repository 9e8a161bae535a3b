// Package collab defines the external collaborators the pipeline depends
// on: AI completion, content-management publishing, design-source
// extraction, headless-browser rendering, and best-effort HTTP checks. The
// pipeline treats all of them as opaque and possibly unreliable; handlers
// depend on these interfaces, never on concrete clients.
package collab
