package imf

import (
	"imfpack/internal/ident"
	"imfpack/internal/xmldoc"
)

const OutputProfileNamespace = "http://www.smpte-ra.org/schemas/2067-100/2014"

// OutputProfile builds the OPL referencing the composition.
func OutputProfile(pkg *Package, alloc ident.Allocation) *xmldoc.Document {
	root := xmldoc.NewElement("OutputProfileList").
		Attr("xmlns", OutputProfileNamespace).
		Add(
			xmldoc.Text("Id", ident.URN(alloc.OPL)),
			xmldoc.Text("Annotation", pkg.Name),
			xmldoc.Text("IssueDate", pkg.issueDate()),
			xmldoc.Text("Issuer", pkg.Issuer),
			xmldoc.Text("Creator", pkg.Creator),
			xmldoc.Text("CompositionPlaylistId", ident.URN(alloc.CPL)),
			xmldoc.NewElement("AliasList"),
			xmldoc.NewElement("MacroList"),
		)
	return xmldoc.New(root)
}
