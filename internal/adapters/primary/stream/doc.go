// Package stream holds the broadcast registry for project events and the
// sinks that carry encoded frames to individual connections.
//
// A Registry tracks, per project, the set of open subscribers. Producers call
// Broadcast after a successful write; the frame is queued on every subscriber
// registered under the project at that moment. Each subscriber owns a bounded
// queue drained by its own writer goroutine, so a slow or dead connection never
// stalls delivery to the others. A full queue or a failed write removes the
// subscriber, exactly as an explicit Unsubscribe would.
package stream
