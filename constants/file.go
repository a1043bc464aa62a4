package constants

import "strings"

// Input formats understood by the document decomposer.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the input formats a run can start from.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions maps accepted input extensions to their format.
var AllowedExtensions = map[string]string{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"gif":  IMAGE,
	"bmp":  IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"webp": IMAGE,
	"heic": IMAGE,
	"heif": IMAGE,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF, IMAGE or "" for an unsupported extension.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// IsHEICExt reports whether ext needs a HEIC->PNG conversion before decoding.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// IsJPEGExt reports whether ext is a JPEG family extension.
func IsJPEGExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg":
		return true
	}
	return false
}
