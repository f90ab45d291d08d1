// Package output turns a render into bytes and writes them somewhere.
//
// The package is organized around three concerns:
//
//   - Encoding (serializer.go, svg.go): YAML and JSON documents of a whole
//     render, and SVG bubble charts of a single chart view.
//
//   - Registry (registry.go): format names mapped to encoders, so commands
//     accept --format without knowing every format.
//
//   - Writers (writer.go): output destinations via the [Writer] interface,
//     with [StdoutWriter] and [FileWriter] implementations.
package output
