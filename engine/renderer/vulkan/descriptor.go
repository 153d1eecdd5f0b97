package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
)

var descriptorTypes = map[layoutgraph.DescriptorTypeOrder]vk.DescriptorType{
	layoutgraph.UniformBuffer:        vk.DescriptorTypeUniformBuffer,
	layoutgraph.DynamicUniformBuffer: vk.DescriptorTypeUniformBufferDynamic,
	layoutgraph.SamplerTexture:       vk.DescriptorTypeCombinedImageSampler,
	layoutgraph.Sampler:              vk.DescriptorTypeSampler,
	layoutgraph.Texture:              vk.DescriptorTypeSampledImage,
	layoutgraph.StorageBuffer:        vk.DescriptorTypeStorageBuffer,
	layoutgraph.DynamicStorageBuffer: vk.DescriptorTypeStorageBufferDynamic,
	layoutgraph.StorageImage:         vk.DescriptorTypeStorageImage,
	layoutgraph.InputAttachment:      vk.DescriptorTypeInputAttachment,
}

func DescriptorType(t layoutgraph.DescriptorTypeOrder) (vk.DescriptorType, error) {
	if dt, ok := descriptorTypes[t]; ok {
		return dt, nil
	}
	return 0, fmt.Errorf("%w: %s", core.ErrUnknownDescriptorType, t)
}

/**
 * @brief Returns the set index a frequency is bound at. Sets that change
 * least often come first.
 */
func SetIndex(freq layoutgraph.UpdateFrequency) uint32 {
	return uint32(layoutgraph.PerPass - freq)
}

/**
 * @brief Translates a descriptor set layout into Vulkan bindings, one per
 * descriptor, numbered from the block offsets.
 */
func SetLayoutBindings(set *layoutgraph.DescriptorSetLayoutData, stages vk.ShaderStageFlags) ([]vk.DescriptorSetLayoutBinding, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, set.Capacity)
	for _, block := range set.DescriptorBlocks {
		dt, err := DescriptorType(block.Type)
		if err != nil {
			return nil, err
		}
		binding := block.Offset
		for _, d := range block.Descriptors {
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         binding,
				DescriptorType:  dt,
				DescriptorCount: d.Count,
				StageFlags:      stages,
			})
			binding += d.Count
		}
	}
	return bindings, nil
}

func SetLayoutCreateInfo(bindings []vk.DescriptorSetLayoutBinding) vk.DescriptorSetLayoutCreateInfo {
	return vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
}

/**
 * @brief Sums the descriptors of sets per Vulkan type, for a pool able to
 * hold setsPerLayout copies of every set. Sizes are ordered by type.
 */
func PoolSizes(sets []*layoutgraph.DescriptorSetLayoutData, setsPerLayout uint32) ([]vk.DescriptorPoolSize, error) {
	counts := make(map[vk.DescriptorType]uint32)
	for _, set := range sets {
		for _, block := range set.DescriptorBlocks {
			dt, err := DescriptorType(block.Type)
			if err != nil {
				return nil, err
			}
			counts[dt] += block.Capacity * setsPerLayout
		}
	}
	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for t := vk.DescriptorTypeSampler; t <= vk.DescriptorTypeInputAttachment; t++ {
		if n := counts[t]; n > 0 {
			sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
		}
	}
	return sizes, nil
}

func PoolCreateInfo(sizes []vk.DescriptorPoolSize, maxSets uint32) vk.DescriptorPoolCreateInfo {
	return vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
}

// LayoutInfo describes every descriptor set of a layout and its parents'
// sets in Vulkan terms, indexed by SetIndex.
type LayoutInfo struct {
	Path     string
	Bindings [][]vk.DescriptorSetLayoutBinding
}

/**
 * @brief Collects the bindings of the sets a shader compiled against layout
 * id sees. A set missing on the layout is taken from the closest ancestor
 * that declares it.
 */
func DescribeLayout(g *layoutgraph.Graph, id layoutgraph.LayoutID, stages vk.ShaderStageFlags) (*LayoutInfo, error) {
	if id == layoutgraph.NullLayout || int(id) >= g.Len() {
		return nil, fmt.Errorf("%w: id %d", core.ErrLayoutNotFound, id)
	}
	info := &LayoutInfo{
		Path:     g.Path(id),
		Bindings: make([][]vk.DescriptorSetLayoutBinding, SetIndex(layoutgraph.PerInstance)+1),
	}
	for freq := layoutgraph.PerInstance; freq <= layoutgraph.PerPass; freq++ {
		for cur := id; cur != layoutgraph.NullLayout; cur = g.Layout(cur).Parent {
			set, ok := g.Layout(cur).DescriptorSets[freq]
			if !ok {
				continue
			}
			bindings, err := SetLayoutBindings(set, stages)
			if err != nil {
				return nil, fmt.Errorf("layout %s %s: %w", info.Path, freq, err)
			}
			info.Bindings[SetIndex(freq)] = bindings
			break
		}
	}
	return info, nil
}
