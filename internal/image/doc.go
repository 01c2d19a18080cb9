// Package image assembles the minimal runtime image for a pipeline: a fixed
// base, the native runtime prerequisites the binary needs at process start
// (certificate trust store, TLS runtime, media transcoder), and the one
// compiled executable. No compiler toolchain, source, or intermediate build
// artifacts enter the image.
package image
