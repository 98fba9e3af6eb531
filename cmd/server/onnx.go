//go:build !windows

package main

import (
	"log"
	"log/slog"

	ort "github.com/yalue/onnxruntime_go"
)

// initOnnxRuntime loads the shared onnxruntime library. Without a configured
// library the server runs with classification disabled.
func initOnnxRuntime(dylib string) func() {
	if dylib == "" {
		slog.Warn("ONNX_RUNTIME_DYLIB not set, skipping onnx runtime initialization")
		return func() {}
	}

	ort.SetSharedLibraryPath(dylib)
	if err := ort.InitializeEnvironment(); err != nil {
		log.Fatalf("could not init ONNX Runtime: %v", err)
	}

	return func() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Error("error destroying onnx env", "error", err)
		}
	}
}
