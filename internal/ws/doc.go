// Package ws provides WebSocket connection handling, message routing, and
// broadcast fan-out for collaborative workspaces.
//
// The package implements:
//   - Hub: Holds the live connection set of a single workspace
//   - HubManager: Connection registry mapping workspaces and users to connections
//   - Engine: Fire-and-forget broadcast fan-out with bounded history and lazy
//     dead-connection pruning
//   - Router: Per-type dispatch of inbound frames with fault isolation
//   - Handler: Per-connection lifecycle (handshake, receive loop, one-shot cleanup)
//
// Key behaviors:
//   - Membership survives disconnects; only connection registries are cleared
//   - Frames from one connection are processed in arrival order, and every
//     receiver observes broadcasts in the single order the engine emitted them
//   - One malformed frame or dead peer never takes down the workspace
package ws
