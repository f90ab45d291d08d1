// Package watch re-runs a render whenever the dataset file (or any other
// watched input such as a preset file) changes on disk. Rapid bursts of
// events, as produced by editors saving through a temporary file, are
// debounced into a single run.
package watch
