// Package serialization saves and loads parameter tensors in the
// SafeTensors format used by HuggingFace:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON, tensor name -> {dtype, shape, data_offsets}, plus "__metadata__"]
//	[tensor data: raw little-endian bytes]
//
// Tensors are written in alphabetical order by name. The writer stores a
// SHA-256 checksum of the data section in the metadata under
// MetadataChecksum; the reader verifies it when present.
//
// Example usage:
//
//	err := serialization.WriteFile("conv.safetensors", tensors, map[string]string{"rank": "4"})
//
//	f, err := serialization.ReadFile("conv.safetensors")
//	weight := f.Tensors["0.conv2d.weight"]
package serialization
