// Package ddr drives the command/acknowledge register interface of the DDR
// memory controller.
//
// A transaction is a request word pair (direction, length and doubleword
// address) followed, for writes, by one strobed doubleword per data word.
// Reads are returned through a circular staging buffer which the controller
// fills asynchronously; the write pointer of that buffer carries a phase bit
// just above the capacity mask so a wrapped pointer can be told apart from one
// which is merely behind.
//
// Only one transaction may be outstanding. Channel serializes callers.
package ddr
