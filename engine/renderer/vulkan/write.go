package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
)

// ImageLayout is the layout an image must be in when bound with access.
func ImageLayout(access metadata.AccessFlags) vk.ImageLayout {
	switch {
	case access.Has(metadata.AccessComputeShaderWrite), access.Has(metadata.AccessFragmentShaderWrite):
		return vk.ImageLayoutGeneral
	case access.Has(metadata.AccessFragmentShaderReadColorInputAttachment) && access.Has(metadata.AccessColorAttachmentWrite):
		return vk.ImageLayoutGeneral
	case access.Has(metadata.AccessFragmentShaderReadDepthStencilInputAttachment) && access.Has(metadata.AccessDepthStencilAttachmentWrite):
		return vk.ImageLayoutGeneral
	case access.Has(metadata.AccessFragmentShaderReadDepthStencilInputAttachment), access.Has(metadata.AccessDepthStencilAttachmentRead):
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case access.Has(metadata.AccessDepthStencilAttachmentWrite):
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case access.Has(metadata.AccessColorAttachmentWrite):
		return vk.ImageLayoutColorAttachmentOptimal
	case access.Has(metadata.AccessTransferWrite):
		return vk.ImageLayoutTransferDstOptimal
	case access.Has(metadata.AccessTransferRead):
		return vk.ImageLayoutTransferSrcOptimal
	default:
		return vk.ImageLayoutShaderReadOnlyOptimal
	}
}

func WriteBuffer(set vk.DescriptorSet, binding uint32, dt vk.DescriptorType, buffer vk.Buffer, size uint32) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorType:  dt,
		DescriptorCount: 1,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer,
			Offset: 0,
			Range:  vk.DeviceSize(size),
		}},
	}
}

// WriteImage binds an image view, a sampler, or both. Storage images and
// input attachments ignore the sampler.
func WriteImage(set vk.DescriptorSet, binding uint32, dt vk.DescriptorType, view vk.ImageView, sampler vk.Sampler, access metadata.AccessFlags) vk.WriteDescriptorSet {
	var info vk.DescriptorImageInfo
	if dt != vk.DescriptorTypeSampler {
		info.ImageView = view
		info.ImageLayout = ImageLayout(access)
	}
	if dt == vk.DescriptorTypeSampler || dt == vk.DescriptorTypeCombinedImageSampler {
		info.Sampler = sampler
	}
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorType:  dt,
		DescriptorCount: 1,
		PImageInfo:      []vk.DescriptorImageInfo{info},
	}
}
