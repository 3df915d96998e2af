package renderer

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"os"

	vk "github.com/goki/vulkan"

	"GPU_render_layer/logging"
)

const MaxShaderStages = 4

// ShaderEntryPoint is the function every stage starts executing at.
const ShaderEntryPoint = "main"

const spirvMagic uint32 = 0x07230203

// ShaderStages is the ordered, gap free set of stages a graphics pipeline is created with.
type ShaderStages struct {
	infos [MaxShaderStages]vk.PipelineShaderStageCreateInfo
	count int
}

// CreateInfos returns a copy of the occupied stages in index order.
func (s *ShaderStages) CreateInfos() []vk.PipelineShaderStageCreateInfo {
	infos := make([]vk.PipelineShaderStageCreateInfo, s.count)
	copy(infos, s.infos[:s.count])
	return infos
}

func (s *ShaderStages) Len() int {
	return s.count
}

// Release destroys every shader module of the set. The set is empty afterwards.
func (s *ShaderStages) Release(drv Driver) {
	var destroyed []vk.ShaderModule
	for i := 0; i < s.count; i++ {
		mod := s.infos[i].Module
		if mod == nil || containsModule(destroyed, mod) {
			continue
		}
		drv.DestroyShaderModule(mod)
		destroyed = append(destroyed, mod)
	}
	s.infos = [MaxShaderStages]vk.PipelineShaderStageCreateInfo{}
	s.count = 0
}

type shaderSlot struct {
	stage  vk.ShaderStageFlagBits
	module vk.ShaderModule
	// owned modules were created by the builder and are destroyed when replaced or when Build fails
	owned bool
}

// ShaderBuilder assembles up to MaxShaderStages stages at explicit indices. Indices may be filled in any order,
// Build checks that no index below the highest one used was left empty. The first error encountered sticks and
// turns every later call into a no-op, Build reports it.
type ShaderBuilder struct {
	drv   Driver
	slots [MaxShaderStages]shaderSlot
	count int
	err   error
}

func NewShaderBuilder(drv Driver) *ShaderBuilder {
	return &ShaderBuilder{drv: drv}
}

func (b *ShaderBuilder) WithVertexShaderFile(index int, code []byte) *ShaderBuilder {
	return b.WithShaderFile(index, vk.ShaderStageVertexBit, code)
}

func (b *ShaderBuilder) WithFragmentShaderFile(index int, code []byte) *ShaderBuilder {
	return b.WithShaderFile(index, vk.ShaderStageFragmentBit, code)
}

// WithShaderFile creates a shader module from SPIR-V code and places it at index for the given stage.
func (b *ShaderBuilder) WithShaderFile(index int, stage vk.ShaderStageFlagBits, code []byte) *ShaderBuilder {
	if b.err != nil {
		return b
	}
	if err := checkStageIndex(index); err != nil {
		b.err = err
		return b
	}
	words, err := DecodeSPIRV(code)
	if err != nil {
		b.err = fmt.Errorf("%s stage %d: %w", stageName(stage), index, err)
		return b
	}
	module, err := b.drv.CreateShaderModule(words)
	if err != nil {
		b.err = apiError(fmt.Sprintf("vkCreateShaderModule (%s stage %d)", stageName(stage), index), err)
		return b
	}
	logging.Debugf("Created %s shader module %v (%d words) for stage %d", stageName(stage), module, len(words), index)
	b.put(index, shaderSlot{stage: stage, module: module, owned: true})
	return b
}

// WithVertexShader places an existing module at index. The built set takes the module over and destroys it on
// Release; the builder itself never destroys it.
func (b *ShaderBuilder) WithVertexShader(index int, module vk.ShaderModule) *ShaderBuilder {
	return b.withModule(index, vk.ShaderStageVertexBit, module)
}

// WithFragmentShader places an existing module at index, see WithVertexShader.
func (b *ShaderBuilder) WithFragmentShader(index int, module vk.ShaderModule) *ShaderBuilder {
	return b.withModule(index, vk.ShaderStageFragmentBit, module)
}

// AddStage appends a stage after the highest index used so far.
func (b *ShaderBuilder) AddStage(stage vk.ShaderStageFlagBits, code []byte) *ShaderBuilder {
	return b.WithShaderFile(b.count, stage, code)
}

func (b *ShaderBuilder) withModule(index int, stage vk.ShaderStageFlagBits, module vk.ShaderModule) *ShaderBuilder {
	if b.err != nil {
		return b
	}
	if err := checkStageIndex(index); err != nil {
		b.err = err
		return b
	}
	b.put(index, shaderSlot{stage: stage, module: module})
	return b
}

func (b *ShaderBuilder) put(index int, slot shaderSlot) {
	if old := b.slots[index]; old.owned && old.module != nil && old.module != slot.module {
		b.drv.DestroyShaderModule(old.module)
	}
	b.slots[index] = slot
	if index+1 > b.count {
		b.count = index + 1
	}
}

// Build checks the stage table and hands it over as an immutable ShaderStages. On failure every module the
// builder created is destroyed. A builder can be built once.
func (b *ShaderBuilder) Build() (*ShaderStages, error) {
	if b.err != nil {
		b.discard()
		return nil, b.err
	}
	if b.count == 0 {
		b.err = fmt.Errorf("%w: at least one shader stage is required", ErrMissingConfig)
		return nil, b.err
	}
	for i := 0; i < b.count; i++ {
		if b.slots[i].module == nil {
			b.discard()
			b.err = fmt.Errorf("%w: stage %d is empty but stage %d is set", ErrStageGap, i, b.count-1)
			return nil, b.err
		}
	}

	stages := &ShaderStages{count: b.count}
	for i := 0; i < b.count; i++ {
		stages.infos[i] = vk.PipelineShaderStageCreateInfo{
			SType:               vk.StructureTypePipelineShaderStageCreateInfo,
			PNext:               nil,
			Flags:               0,
			Stage:               b.slots[i].stage,
			Module:              b.slots[i].module,
			PName:               ShaderEntryPoint + "\x00",
			PSpecializationInfo: nil,
		}
	}
	b.slots = [MaxShaderStages]shaderSlot{}
	b.err = fmt.Errorf("%w: shader builder was already built", ErrContract)
	return stages, nil
}

func (b *ShaderBuilder) discard() {
	for i := range b.slots {
		if b.slots[i].owned && b.slots[i].module != nil {
			b.drv.DestroyShaderModule(b.slots[i].module)
		}
	}
	b.slots = [MaxShaderStages]shaderSlot{}
}

func checkStageIndex(index int) error {
	if index < 0 || index >= MaxShaderStages {
		return fmt.Errorf("%w: index %d, capacity %d", ErrStageCapacity, index, MaxShaderStages)
	}
	return nil
}

// DecodeSPIRV turns SPIR-V bytecode into code words. The magic number decides the byte order, a byte swapped
// module is converted to host order.
func DecodeSPIRV(code []byte) ([]uint32, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no code", ErrMalformedBytecode)
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrMalformedBytecode, len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	switch words[0] {
	case spirvMagic:
	case bits.ReverseBytes32(spirvMagic):
		for i := range words {
			words[i] = bits.ReverseBytes32(words[i])
		}
	default:
		return nil, fmt.Errorf("%w: bad magic number %#08x", ErrMalformedBytecode, words[0])
	}
	return words, nil
}

// LoadShaderCode reads a compiled '.spv' file.
func LoadShaderCode(path string) ([]byte, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shader file '%s': %w", path, err)
	}
	logging.Debugf("Read shader file (%s) of size: %dByte", path, len(code))
	return code, nil
}

func stageName(stage vk.ShaderStageFlagBits) string {
	switch stage {
	case vk.ShaderStageVertexBit:
		return "vertex"
	case vk.ShaderStageFragmentBit:
		return "fragment"
	case vk.ShaderStageGeometryBit:
		return "geometry"
	case vk.ShaderStageTessellationControlBit:
		return "tessellation control"
	case vk.ShaderStageTessellationEvaluationBit:
		return "tessellation evaluation"
	case vk.ShaderStageComputeBit:
		return "compute"
	default:
		return fmt.Sprintf("stage(%#x)", uint32(stage))
	}
}

func containsModule(mods []vk.ShaderModule, m vk.ShaderModule) bool {
	for i := range mods {
		if mods[i] == m {
			return true
		}
	}
	return false
}
