// Package kernel implements the semantic kernel: an append-only log of
// commit records (thoughts), a derived read index, secret and noise scopes,
// and per-scope encrypted branch blobs.
//
// Every mutation goes through Postulate, which recognizes the operator
// call, appends at most one Thought, and rebuilds the index from the log.
// Reads go through Read, which decides between the branch plane (paths
// under a secret scope) and the index plane (everything else).
//
// Read results distinguish three outcomes:
//   - (v, true): a readable value
//   - (ir.IRNull{}, true): stored but undecryptable (no effective secret)
//   - (nil, false): hidden - absent, the root of a secret scope, or a
//     blob that fails to decrypt
//
// Thread-safety: a Kernel is NOT safe for concurrent use. Eval thunks and
// query transforms run synchronously and may call back into the kernel.
package kernel
