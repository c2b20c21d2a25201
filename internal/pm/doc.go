// Package pm defines the contracts between the force engine and its
// collaborators.
//
// The engine itself only does spectral arithmetic. Everything else is
// consumed through interfaces:
//
//   - [Mesh]: geometry, forward/inverse transforms, mass assignment and readout
//   - [Communicator]: blocking all-reduce across the ranks sharing a mesh
//   - [ParticleStore]: positions and a settable acceleration per particle
//   - [GhostExchanger] and [Ghosts]: boundary copies and additive reduction
//
// # Errors
//
// Every failure is fatal to the run. Configuration problems wrap
// [ErrConfiguration] or [ErrNoMeshConfigured], scratch allocation failures
// wrap [ErrResourceExhausted], and collaborator failures are returned as a
// [*CollaboratorError] naming the pipeline stage.
package pm
