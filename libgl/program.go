package libgl

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var shaderVersionPattern = regexp.MustCompile(`(?m)^\s*#version.+$`)

// InjectDefines inserts a #define line per entry after the #version directive.
// Sources without a version directive get the defines prepended.
func InjectDefines(source string, defines map[string]string) string {
	if len(defines) == 0 {
		return source
	}
	names := maps.Keys(defines)
	slices.Sort(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString("\n#define ")
		sb.WriteString(name)
		if v := defines[name]; v != "" {
			sb.WriteByte(' ')
			sb.WriteString(v)
		}
	}

	loc := shaderVersionPattern.FindStringIndex(source)
	if loc == nil {
		return strings.TrimPrefix(sb.String(), "\n") + "\n" + source
	}
	return source[:loc[1]] + sb.String() + source[loc[1]:]
}

// program is a separable single stage shader program.
type program struct {
	glId             uint32
	name             string
	stage            uint32
	uniformLocations map[string]int32
	// texture uniforms in declaration order, assigned to consecutive units
	samplers map[string]int32
	logger   *slog.Logger
}

func compileProgram(name, source string, stage uint32, logger *slog.Logger) (*program, error) {
	cStrs, free := gl.Strs(source + "\x00")
	id := gl.CreateShaderProgramv(stage, 1, cStrs)
	free()

	var ok int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &ok)
	if ok == gl.FALSE {
		info := readProgramInfoLog(id)
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("failed to link %v shader, log: %v", name, info)
	}
	setObjectLabel(gl.PROGRAM, id, name)

	prog := &program{
		glId:             id,
		name:             name,
		stage:            stage,
		uniformLocations: map[string]int32{},
		samplers:         map[string]int32{},
		logger:           logger,
	}
	prog.assignTextureUnits()
	return prog, nil
}

func readProgramInfoLog(id uint32) string {
	var logLength int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

// assignTextureUnits binds every sampler and image uniform to its own unit once,
// so that executing a stage only has to bind textures.
func (prog *program) assignTextureUnits() {
	var count, maxLength int32
	gl.GetProgramiv(prog.glId, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(prog.glId, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLength)
	buf := make([]uint8, maxLength+1)

	unit := int32(0)
	for i := uint32(0); i < uint32(count); i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(prog.glId, i, int32(len(buf)), &length, &size, &xtype, &buf[0])
		if !isTextureUniform(xtype) {
			continue
		}
		name := string(buf[:length])
		prog.samplers[name] = unit
		gl.ProgramUniform1i(prog.glId, prog.location(name), unit)
		unit++
	}
}

func isTextureUniform(xtype uint32) bool {
	switch xtype {
	case gl.SAMPLER_2D, gl.SAMPLER_CUBE, gl.IMAGE_2D, gl.IMAGE_CUBE:
		return true
	}
	return false
}

func (prog *program) location(name string) int32 {
	if location, ok := prog.uniformLocations[name]; ok {
		return location
	}

	location := gl.GetUniformLocation(prog.glId, gl.Str(name+"\x00"))
	prog.uniformLocations[name] = location
	if location == -1 {
		prog.logger.Debug("uniform not active", "shader", prog.name, "uniform", name)
	}
	return location
}

func (prog *program) setFloat(name string, v float32) {
	if location := prog.location(name); location != -1 {
		gl.ProgramUniform1f(prog.glId, location, v)
	}
}

func (prog *program) setVec4(name string, v mgl32.Vec4) {
	if location := prog.location(name); location != -1 {
		gl.ProgramUniform4f(prog.glId, location, v.X(), v.Y(), v.Z(), v.W())
	}
}

func (prog *program) setMat4(name string, v mgl32.Mat4) {
	if location := prog.location(name); location != -1 {
		gl.ProgramUniformMatrix4fv(prog.glId, location, 1, false, &v[0])
	}
}

func (prog *program) delete() {
	gl.DeleteProgram(prog.glId)
	prog.glId = 0
}

// pipeline combines the separable programs of one stage.
type pipeline struct {
	glId     uint32
	name     string
	programs []*program
	compute  bool
}

func newPipeline(name string, compute bool, programs ...*program) *pipeline {
	var id uint32
	gl.CreateProgramPipelines(1, &id)
	for _, prog := range programs {
		gl.UseProgramStages(id, stageBit(prog.stage), prog.glId)
	}
	setObjectLabel(gl.PROGRAM_PIPELINE, id, name)
	return &pipeline{glId: id, name: name, programs: programs, compute: compute}
}

func stageBit(stage uint32) uint32 {
	switch stage {
	case gl.VERTEX_SHADER:
		return gl.VERTEX_SHADER_BIT
	case gl.FRAGMENT_SHADER:
		return gl.FRAGMENT_SHADER_BIT
	case gl.COMPUTE_SHADER:
		return gl.COMPUTE_SHADER_BIT
	}
	panic(fmt.Sprintf("%d is not a supported shader stage", stage))
}

// stageProgram is the program receiving the stage parameters.
func (p *pipeline) stageProgram() *program {
	return p.programs[len(p.programs)-1]
}

// delete releases the pipeline and every program that is not shared.
func (p *pipeline) delete(shared *program) {
	for _, prog := range p.programs {
		if prog != shared {
			prog.delete()
		}
	}
	gl.DeleteProgramPipelines(1, &p.glId)
	p.glId = 0
}
