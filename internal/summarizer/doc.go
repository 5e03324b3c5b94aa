// Package summarizer defines the domain types, ports, and typed errors shared by
// the article summarizer: the document loader, parser strategies, artifact
// sync, model manager, and the HTTP surfaces built on top of them.
package summarizer
