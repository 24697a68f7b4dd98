package imf

import (
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"imfpack/internal/assets"
	"imfpack/internal/digest"
	"imfpack/internal/ident"
	"imfpack/internal/xmldoc"
)

const (
	PackingListNamespace = "http://www.smpte-ra.org/schemas/2067-2/2016/PKL"
	sha1AlgorithmURI     = "http://www.w3.org/2000/09/xmldsig#sha1"
)

// Entry is one artifact listed in the packing list.
type Entry struct {
	ID     uuid.UUID
	Name   string
	Digest string
	Size   int64
	Type   string
}

// DescribeFile digests the written file dir/name and returns its packing
// list entry.
func DescribeFile(dir, name string, id uuid.UUID) (Entry, error) {
	res, err := digest.File(filepath.Join(dir, name))
	if err != nil {
		return Entry{}, err
	}
	return Entry{ID: id, Name: name, Digest: res.Digest, Size: res.Size, Type: MIMEType(name)}, nil
}

// DescribeAsset returns the entry of a digested asset.
func DescribeAsset(a *assets.Asset) Entry {
	return Entry{ID: a.ID, Name: a.Name, Digest: a.Digest, Size: a.Size, Type: MIMEType(a.Name)}
}

// PackingList builds the PKL over entries, which the assembler supplies in
// the order CPL, OPL, then every asset.
func PackingList(pkg *Package, alloc ident.Allocation, entries []Entry) *xmldoc.Document {
	list := xmldoc.NewElement("AssetList")
	for _, e := range entries {
		list.Add(xmldoc.NewElement("Asset").Add(
			xmldoc.Text("Id", ident.URN(e.ID)),
			xmldoc.Text("AnnotationText", e.Name),
			xmldoc.Text("Hash", e.Digest),
			xmldoc.Text("Size", strconv.FormatInt(e.Size, 10)),
			xmldoc.Text("Type", e.Type),
			xmldoc.Text("OriginalFileName", e.Name),
			xmldoc.WithAttr("HashAlgorithm", "Algorithm", sha1AlgorithmURI),
		))
	}
	root := xmldoc.NewElement("PackingList").
		Attr("xmlns", PackingListNamespace).
		Add(
			xmldoc.Text("Id", ident.URN(alloc.PKL)),
			xmldoc.Text("AnnotationText", pkg.Name),
			xmldoc.Text("IssueDate", pkg.issueDate()),
			xmldoc.Text("Issuer", pkg.Issuer),
			xmldoc.Text("Creator", pkg.Creator),
			list,
		)
	return xmldoc.New(root)
}
