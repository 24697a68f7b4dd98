package imf

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	AssetMapFile    = "ASSETMAP.xml"
	VolumeIndexFile = "VOLINDEX.xml"
)

// CompositionFile is the CPL file name for id.
func CompositionFile(id uuid.UUID) string { return "CPL_" + id.String() + ".xml" }

// OutputProfileFile is the OPL file name for id.
func OutputProfileFile(id uuid.UUID) string { return "OPL_" + id.String() + ".xml" }

// PackingListFile is the PKL file name for id.
func PackingListFile(id uuid.UUID) string { return "PKL_" + id.String() + ".xml" }

// IsReservedName reports whether an essence file called name could collide
// with a generated document. Comparison ignores case.
func IsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if upper == strings.ToUpper(AssetMapFile) || upper == strings.ToUpper(VolumeIndexFile) {
		return true
	}
	if !strings.HasSuffix(upper, ".XML") {
		return false
	}
	for _, prefix := range []string{"CPL_", "OPL_", "PKL_"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

var mimeTypes = map[string]string{
	".mxf": "application/mxf",
	".j2c": "image/j2c",
	".j2k": "image/j2c",
	".jp2": "image/jp2",
	".wav": "audio/wav",
	".xml": "text/xml",
}

// MIMEType is the packing list Type for a file name.
func MIMEType(name string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}
