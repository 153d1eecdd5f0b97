package metadata

import (
	"fmt"
	"strings"
)

/** @brief The value types a shader can declare, for uniforms and descriptors alike. */
type Type uint32

const (
	TypeUnknown Type = iota
	TypeBool
	TypeBool2
	TypeBool3
	TypeBool4
	TypeInt
	TypeInt2
	TypeInt3
	TypeInt4
	TypeUint
	TypeUint2
	TypeUint3
	TypeUint4
	TypeFloat
	TypeFloat2
	TypeFloat3
	TypeFloat4
	TypeMat2
	TypeMat2x3
	TypeMat2x4
	TypeMat3x2
	TypeMat3
	TypeMat3x4
	TypeMat4x2
	TypeMat4x3
	TypeMat4
	// Combined image samplers
	TypeSampler1D
	TypeSampler1DArray
	TypeSampler2D
	TypeSampler2DArray
	TypeSampler3D
	TypeSamplerCube
	// Sampler
	TypeSampler
	// Sampled textures
	TypeTexture1D
	TypeTexture1DArray
	TypeTexture2D
	TypeTexture2DArray
	TypeTexture3D
	TypeTextureCube
	// Storage images
	TypeImage1D
	TypeImage1DArray
	TypeImage2D
	TypeImage2DArray
	TypeImage3D
	TypeImageCube
	// Input attachment
	TypeSubpassInput
	typeCount
)

var typeNames = [typeCount]string{
	TypeUnknown:        "unknown",
	TypeBool:           "bool",
	TypeBool2:          "bool2",
	TypeBool3:          "bool3",
	TypeBool4:          "bool4",
	TypeInt:            "int",
	TypeInt2:           "int2",
	TypeInt3:           "int3",
	TypeInt4:           "int4",
	TypeUint:           "uint",
	TypeUint2:          "uint2",
	TypeUint3:          "uint3",
	TypeUint4:          "uint4",
	TypeFloat:          "float",
	TypeFloat2:         "float2",
	TypeFloat3:         "float3",
	TypeFloat4:         "float4",
	TypeMat2:           "mat2",
	TypeMat2x3:         "mat2x3",
	TypeMat2x4:         "mat2x4",
	TypeMat3x2:         "mat3x2",
	TypeMat3:           "mat3",
	TypeMat3x4:         "mat3x4",
	TypeMat4x2:         "mat4x2",
	TypeMat4x3:         "mat4x3",
	TypeMat4:           "mat4",
	TypeSampler1D:      "sampler1d",
	TypeSampler1DArray: "sampler1d_array",
	TypeSampler2D:      "sampler2d",
	TypeSampler2DArray: "sampler2d_array",
	TypeSampler3D:      "sampler3d",
	TypeSamplerCube:    "sampler_cube",
	TypeSampler:        "sampler",
	TypeTexture1D:      "texture1d",
	TypeTexture1DArray: "texture1d_array",
	TypeTexture2D:      "texture2d",
	TypeTexture2DArray: "texture2d_array",
	TypeTexture3D:      "texture3d",
	TypeTextureCube:    "texture_cube",
	TypeImage1D:        "image1d",
	TypeImage1DArray:   "image1d_array",
	TypeImage2D:        "image2d",
	TypeImage2DArray:   "image2d_array",
	TypeImage3D:        "image3d",
	TypeImageCube:      "image_cube",
	TypeSubpassInput:   "subpass_input",
}

func (t Type) String() string {
	if t >= typeCount {
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
	return typeNames[t]
}

// TypeFromString parses the lower-case names used in layout files.
func TypeFromString(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return TypeUnknown, fmt.Errorf("string %s is not a valid Type", s)
}

// TypeSize returns the size in bytes of a single element of t as laid out in
// a uniform block. Opaque types (samplers, textures, images) count as 4.
func TypeSize(t Type) uint32 {
	switch t {
	case TypeBool, TypeInt, TypeUint, TypeFloat:
		return 4
	case TypeBool2, TypeInt2, TypeUint2, TypeFloat2:
		return 8
	case TypeBool3, TypeInt3, TypeUint3, TypeFloat3:
		return 12
	case TypeBool4, TypeInt4, TypeUint4, TypeFloat4, TypeMat2:
		return 16
	case TypeMat2x3, TypeMat3x2:
		return 24
	case TypeMat2x4, TypeMat4x2:
		return 32
	case TypeMat3:
		return 36
	case TypeMat3x4, TypeMat4x3:
		return 48
	case TypeMat4:
		return 64
	case TypeUnknown:
		return 0
	default:
		if t < typeCount {
			return 4
		}
		return 0
	}
}

func (t Type) IsCombinedSampler() bool {
	return t >= TypeSampler1D && t <= TypeSamplerCube
}
