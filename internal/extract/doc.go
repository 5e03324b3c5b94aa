// Package extract holds the HTML-to-text parser strategies used by the document
// loader, the shared cleanup helpers they build on, and the domain-keyed
// registry that picks a strategy for each article host.
//
// Adding an outlet means writing a summarizer.Parser and registering it under
// the outlet's host; dispatch itself never changes.
package extract
