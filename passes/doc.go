// Package passes defines the black-box contract for every compute pass
// the build orchestrator sequences, and provides a compute-shader-backed
// implementation of each. Only the externally observable contract of a
// pass matters to the orchestrator (inputs, outputs, implicit barriers);
// the shader algorithm behind each pass is free to change without
// touching the root package, as long as the contract holds.
package passes
