package imf

import (
	"strconv"

	"github.com/google/uuid"

	"imfpack/internal/ident"
	"imfpack/internal/xmldoc"
)

const AssetMapNamespace = "http://www.smpte-ra.org/schemas/429-9/2007/AM"

// Binding ties an identifier to a file in the volume.
type Binding struct {
	ID          uuid.UUID
	Path        string
	Length      int64
	PackingList bool
}

// Bindings lists what the asset map must declare: the packing list first,
// then every artifact the packing list describes.
func Bindings(pkl Entry, entries []Entry) []Binding {
	out := make([]Binding, 0, len(entries)+1)
	out = append(out, Binding{ID: pkl.ID, Path: pkl.Name, Length: pkl.Size, PackingList: true})
	for _, e := range entries {
		out = append(out, Binding{ID: e.ID, Path: e.Name, Length: e.Size})
	}
	return out
}

// AssetMap builds the ASSETMAP for a single-volume package.
func AssetMap(pkg *Package, alloc ident.Allocation, bindings []Binding) *xmldoc.Document {
	list := xmldoc.NewElement("AssetList")
	for _, b := range bindings {
		asset := xmldoc.NewElement("Asset").Add(xmldoc.Text("Id", ident.URN(b.ID)))
		if b.PackingList {
			asset.Add(xmldoc.Text("PackingList", "true"))
		}
		chunk := xmldoc.NewElement("Chunk").Add(
			xmldoc.Text("Path", b.Path),
			xmldoc.Text("VolumeIndex", "1"),
			xmldoc.Text("Offset", "0"),
			xmldoc.Text("Length", strconv.FormatInt(b.Length, 10)),
		)
		asset.Add(xmldoc.NewElement("ChunkList").Add(chunk))
		list.Add(asset)
	}
	root := xmldoc.NewElement("AssetMap").
		Attr("xmlns", AssetMapNamespace).
		Add(
			xmldoc.Text("Id", ident.URN(alloc.AssetMap)),
			xmldoc.Text("Creator", pkg.Creator),
			xmldoc.Text("VolumeCount", "1"),
			xmldoc.Text("IssueDate", pkg.issueDate()),
			xmldoc.Text("Issuer", pkg.Issuer),
			list,
		)
	return xmldoc.New(root)
}
