// Package buildplan maps a project's language, style and target operating
// systems to the ordered command vectors that build and test it.
//
// Plan is pure: it performs no I/O and never fails. Unknown languages
// degrade to a generic plan that runs make when a Makefile exists.
//
// When a target operating system differs from the host and the toolchain
// for that (language, style) pair only produces artifacts for its native
// host, every command is wrapped in a compatibility shim. For Windows
// targets on non-Windows hosts the shim is wine, with WINEDEBUG=-all to
// silence its debug channels.
package buildplan
