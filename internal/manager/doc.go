// Package manager is the lifecycle controller of llmctl. It owns the serving
// unit, the model handle and the configuration store, and is the only writer
// of that shared state. It is structured into small files by concern:
//
//   - manager.go: Manager type, constructor, Close and simple getters.
//   - config.go: ManagerConfig and package defaults.
//   - types.go: ServerState, ModelState and Snapshot.
//   - errors.go: error kinds and IsX helpers for HTTP status mapping.
//   - events.go / queue.go: Event union, EventPublisher and the unbounded Queue.
//   - task.go: handles returned by commands that spawn a worker.
//   - server.go: StartServer/StopServer and the serving worker.
//   - load.go / unload.go: model transitions and handle leases.
//   - probe.go: capacity probe worker and SelectModel.
//   - debounce.go: debounced SetGPULayers.
//   - admission.go / infer.go: batch admission and Generate.
//   - status_report.go / metrics.go: /status projection and Prometheus collector.
//
// Commands never block on engine or network I/O: they validate the current
// state under the lock, move to a transitional state and hand the blocking
// work to a goroutine that reports back through state updates and the event
// publisher. Invalid commands are rejected synchronously with an error for
// which IsInvalidState reports true.
//
// The model handle is non-nil exactly while the model state is Loaded.
// Generations take a lease on the handle; Unload clears the reference first
// and releases the engine only after every lease is returned.
package manager
