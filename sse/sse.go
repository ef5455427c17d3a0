// Package sse turns a chunked server-sent-event byte stream into classified
// [parley.Event] values: a push-based frame decoder tolerant of arbitrary
// chunk boundaries, and a per-frame classifier.
package sse
