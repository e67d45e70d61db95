// Package events provides an in-process broker for deployment lifecycle
// events: snapshot discovery, load outcomes, health vetoes, alias
// switches, and retention drops. Distribution is non-blocking; a slow
// subscriber drops events rather than stalling the pipeline.
package events
