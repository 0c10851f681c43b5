// Package audit buffers session lifecycle events and relays them to a sink.
//
// [Dispatcher] runs a single goroutine; Close drains pending events before
// returning. Sinks provided here: [NoOpSink], [ChannelSink] and
// [JSONWriterSink]. Which events exist and when they are emitted is decided
// by the session manager, not by this package.
package audit
