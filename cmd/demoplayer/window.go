package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/crudelios/easyav1-go"
)

// window owns the GLFW window/context and the OpenGL objects that display
// one decoded VideoFrame per draw call: three single-channel textures (Y,
// U, V) uploaded from the frame's planes, sampled by a shader that does the
// YUV-to-RGB conversion the core's Non-goals explicitly leave to callers.
// Grounded on the teacher's glfwcontext.Context (window/context lifecycle)
// and shader package (fullscreen-quad blit shader), generalized from
// "blit one RGBA texture" to "blit three planar textures with a conversion
// shader" since this demo displays YUV pictures, not pre-converted frames.
type window struct {
	win *glfw.Window

	program  uint32
	vao      uint32
	yTex, uTex, vTex uint32
	uniforms map[string]int32
}

const vertexShaderSource = `#version 410 core
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
	frag_uv = in_vert * 0.5 + 0.5;
	gl_Position = vec4(in_vert, 0.0, 1.0);
}
` + "\x00"

// fragmentShaderSource does BT.601 limited-range YUV->RGB, adequate for a
// demo player; color-accurate conversion using the picture's own
// color-primaries/matrix metadata is left to a real embedding application.
const fragmentShaderSource = `#version 410 core
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_y;
uniform sampler2D u_u;
uniform sampler2D u_v;
void main() {
	float y = texture(u_y, frag_uv).r;
	float u = texture(u_u, frag_uv).r - 0.5;
	float v = texture(u_v, frag_uv).r - 0.5;
	float r = y + 1.402 * v;
	float g = y - 0.344136 * u - 0.714136 * v;
	float b = y + 1.772 * u;
	fragColor = vec4(r, g, b, 1.0);
}
` + "\x00"

func newWindow(title string, width, height int) (*window, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("demoplayer: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("demoplayer: create window: %w", err)
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("demoplayer: gl init: %w", err)
	}
	log.Printf("demoplayer: OpenGL %s", gl.GoStr(gl.GetString(gl.VERSION)))

	w := &window{win: win, uniforms: map[string]int32{}}
	if err := w.buildPipeline(); err != nil {
		return nil, err
	}
	return w, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := make([]byte, logLength+1)
		gl.GetShaderInfoLog(shader, logLength, nil, &log[0])
		return 0, fmt.Errorf("demoplayer: compile shader: %s", log)
	}
	return shader, nil
}

func (w *window) buildPipeline() error {
	vs, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return err
	}
	fs, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	w.program = program

	for _, name := range []string{"u_y", "u_u", "u_v"} {
		w.uniforms[name] = gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	}

	quad := []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	var vbo uint32
	gl.GenVertexArrays(1, &w.vao)
	gl.GenBuffers(1, &vbo)
	gl.BindVertexArray(w.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 0, nil)
	gl.EnableVertexAttribArray(0)

	w.yTex = newPlaneTexture()
	w.uTex = newPlaneTexture()
	w.vTex = newPlaneTexture()
	return nil
}

func newPlaneTexture() uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	return tex
}

func uploadPlane(tex uint32, width, height, stride int, data []byte) {
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(stride))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(width), int32(height), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(data))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
}

// Draw uploads f's three planes and blits the YUV->RGB shader over the
// fullscreen quad. Only 8-bit 4:2:0/4:2:2/4:4:4 pictures are handled; other
// bit depths are a real embedder's problem, same as color-space accuracy.
func (w *window) Draw(f *easyav1.VideoFrame) {
	chromaW, chromaH := f.Width, f.Height
	if f.Layout == easyav1.PixelLayout420 || f.Layout == easyav1.PixelLayout422 {
		chromaW = (f.Width + 1) / 2
	}
	if f.Layout == easyav1.PixelLayout420 {
		chromaH = (f.Height + 1) / 2
	}

	gl.UseProgram(w.program)
	gl.ActiveTexture(gl.TEXTURE0)
	uploadPlane(w.yTex, f.Width, f.Height, f.Strides[0], f.Planes[0])
	gl.Uniform1i(w.uniforms["u_y"], 0)

	gl.ActiveTexture(gl.TEXTURE1)
	uploadPlane(w.uTex, chromaW, chromaH, f.Strides[1], f.Planes[1])
	gl.Uniform1i(w.uniforms["u_u"], 1)

	gl.ActiveTexture(gl.TEXTURE2)
	uploadPlane(w.vTex, chromaW, chromaH, f.Strides[2], f.Planes[2])
	gl.Uniform1i(w.uniforms["u_v"], 2)

	fw, fh := w.win.GetFramebufferSize()
	gl.Viewport(0, 0, int32(fw), int32(fh))
	gl.BindVertexArray(w.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

func (w *window) ShouldClose() bool { return w.win.ShouldClose() }

func (w *window) EndFrame() {
	w.win.SwapBuffers()
	glfw.PollEvents()
}

func (w *window) Shutdown() {
	glfw.Terminate()
}
