package libgl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Context is an invisible window holding an OpenGL 4.5 core context.
// glfw requires it to be created and used on the main thread; lock the OS thread first.
type Context struct {
	window *glfw.Window
}

func NewHiddenContext(debug bool) (ctx *Context, err error) {
	// glfw panics on some platform errors, e.g. when there is no display
	defer func() {
		if r := recover(); r != nil {
			ctx, err = nil, fmt.Errorf("create context: %v", r)
		}
	}()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize glfw: %w", err)
	}

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.ContextRobustness, glfw.LoseContextOnReset)
	if debug {
		glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	}

	window, err := glfw.CreateWindow(64, 64, "envlight", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create context window: %w", err)
	}
	window.MakeContextCurrent()

	err = gl.InitWithProcAddrFunc(func(name string) unsafe.Pointer {
		addr := glfw.GetProcAddress(name)
		if addr == nil {
			return unsafe.Pointer(uintptr(0xffff_ffff_ffff_ffff))
		}
		return addr
	})
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("load gl functions: %w", err)
	}

	return &Context{window: window}, nil
}

func (ctx *Context) Release() {
	if ctx.window == nil {
		return
	}
	ctx.window.Destroy()
	ctx.window = nil
	glfw.Terminate()
}
