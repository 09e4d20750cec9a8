// Package embeddings provides the text embedders used by the vector store.
//
// Two providers implement Provider:
//
//   - "fastembed" runs a local ONNX model through fastembed-go. It needs cgo
//     and the ONNX runtime shared library; EnsureONNXRuntime installs it.
//   - "tei" calls a text-embeddings-inference server over HTTP.
//
// Both record OTEL metrics under memvec.embeddings.*.
package embeddings
