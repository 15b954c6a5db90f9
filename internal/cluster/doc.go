// Package cluster runs tasks on a fixed pool of in-process workers. Each
// worker owns its own runtime, so module registries and finder chains are not
// shared between workers. Preload callbacks prepare a worker's runtime before
// it serves any task. Setup uses this to install the notebook finder on every
// worker.
package cluster
