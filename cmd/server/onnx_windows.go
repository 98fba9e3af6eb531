//go:build windows

package main

import "log/slog"

func initOnnxRuntime(dylib string) func() {
	slog.Warn("onnx runtime is not supported on windows, image classification is disabled")
	return func() {}
}
