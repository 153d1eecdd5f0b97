package metadata

import "strings"

/** @brief How a pass touches a resource. Used for barrier-aware binding. */
type AccessFlags uint32

const AccessNone AccessFlags = 0

const (
	AccessVertexShaderReadUniformBuffer AccessFlags = 1 << iota
	AccessVertexShaderReadTexture
	AccessFragmentShaderReadUniformBuffer
	AccessFragmentShaderReadTexture
	AccessFragmentShaderReadColorInputAttachment
	AccessFragmentShaderReadDepthStencilInputAttachment
	AccessColorAttachmentRead
	AccessDepthStencilAttachmentRead
	AccessComputeShaderReadUniformBuffer
	AccessComputeShaderReadTexture
	AccessComputeShaderReadOther
	AccessTransferRead
	AccessFragmentShaderWrite
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentWrite
	AccessComputeShaderWrite
	AccessTransferWrite
)

var accessNames = []string{
	"VertexShaderReadUniformBuffer",
	"VertexShaderReadTexture",
	"FragmentShaderReadUniformBuffer",
	"FragmentShaderReadTexture",
	"FragmentShaderReadColorInputAttachment",
	"FragmentShaderReadDepthStencilInputAttachment",
	"ColorAttachmentRead",
	"DepthStencilAttachmentRead",
	"ComputeShaderReadUniformBuffer",
	"ComputeShaderReadTexture",
	"ComputeShaderReadOther",
	"TransferRead",
	"FragmentShaderWrite",
	"ColorAttachmentWrite",
	"DepthStencilAttachmentWrite",
	"ComputeShaderWrite",
	"TransferWrite",
}

func (f AccessFlags) Has(o AccessFlags) bool {
	return f&o == o
}

func (f AccessFlags) String() string {
	if f == AccessNone {
		return "None"
	}
	var parts []string
	for i, name := range accessNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
