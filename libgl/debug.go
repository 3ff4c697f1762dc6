package libgl

import (
	"context"
	"log/slog"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
)

func setObjectLabel(namespace, id uint32, label string) {
	if label == "" {
		return
	}
	bytes := []byte(label)
	gl.ObjectLabel(namespace, id, int32(len(bytes)), (*uint8)(unsafe.Pointer(&bytes[0])))
}

// EnableDebugOutput forwards driver messages to the logger. Needs a debug context.
func EnableDebugOutput(logger *slog.Logger) {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
		level := slog.LevelDebug
		switch severity {
		case gl.DEBUG_SEVERITY_HIGH:
			level = slog.LevelError
		case gl.DEBUG_SEVERITY_MEDIUM:
			level = slog.LevelWarn
		case gl.DEBUG_SEVERITY_LOW:
			level = slog.LevelInfo
		}
		logger.Log(context.Background(), level, "GL: "+message, "id", id, "type", gltype)
	}, nil)
}

func pushDebugGroup(name string) {
	bytes := []byte(name)
	if len(bytes) == 0 {
		bytes = []byte{'?'}
	}
	gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 0, int32(len(bytes)), (*uint8)(unsafe.Pointer(&bytes[0])))
}

func popDebugGroup() {
	gl.PopDebugGroup()
}
