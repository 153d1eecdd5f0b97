package metadata

import "fmt"

/**
 * @brief Represents the dimensionality of a texture.
 */
type TextureType int

const (
	/** @brief A one-dimensional texture. */
	TextureType1d TextureType = iota
	/** @brief A standard two-dimensional texture. */
	TextureType2d
	/** @brief A three-dimensional (volume) texture. */
	TextureType3d
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
	/** @brief An array of one-dimensional textures. */
	TextureType1dArray
	/** @brief An array of two-dimensional textures. */
	TextureType2dArray
	textureTypeCount
)

// TextureTypes lists every texture dimensionality.
func TextureTypes() []TextureType {
	types := make([]TextureType, 0, textureTypeCount)
	for t := TextureType1d; t < textureTypeCount; t++ {
		types = append(types, t)
	}
	return types
}

func ParseTextureType(s string) (TextureType, error) {
	for t := TextureType1d; t < textureTypeCount; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TextureType2d, fmt.Errorf("string %s is not a valid TextureType", s)
}

func (t TextureType) String() string {
	switch t {
	case TextureType1d:
		return "1d"
	case TextureType2d:
		return "2d"
	case TextureType3d:
		return "3d"
	case TextureTypeCube:
		return "cube"
	case TextureType1dArray:
		return "1d_array"
	case TextureType2dArray:
		return "2d_array"
	default:
		return "unknown"
	}
}

/**
 * @brief Returns the texture dimensionality a descriptor of the given type
 * expects. Types without a dimensionality map to a two-dimensional texture.
 */
func DefaultTextureType(t Type) TextureType {
	switch t {
	case TypeSampler1D, TypeTexture1D, TypeImage1D:
		return TextureType1d
	case TypeSampler1DArray, TypeTexture1DArray, TypeImage1DArray:
		return TextureType1dArray
	case TypeSampler2DArray, TypeTexture2DArray, TypeImage2DArray:
		return TextureType2dArray
	case TypeSampler3D, TypeTexture3D, TypeImage3D:
		return TextureType3d
	case TypeSamplerCube, TypeTextureCube, TypeImageCube:
		return TextureTypeCube
	default:
		return TextureType2d
	}
}
