// Package spectral holds the Fourier-space arithmetic of the force solve:
// the per-axis wavenumber factor table, the force transfer kernel that
// turns a density field into one force component, and a Gaussian density
// smoothing kernel.
//
// Fields are interleaved (real, imaginary) pairs over the local complex
// region of a [grid.Geometry]. Kernels read a source field and write a
// distinct destination field; they never work in place.
package spectral
