// Package imf generates the metadata documents of an interoperable master
// package and reads them back.
//
// A package directory holds the copied essence files plus five documents:
//
//	ASSETMAP.xml      binds every identifier to a file in the volume
//	VOLINDEX.xml      fixed volume index (Index 1)
//	CPL_<uuid>.xml    composition playlist, one segment of image and audio resources
//	OPL_<uuid>.xml    output profile list pointing at the composition
//	PKL_<uuid>.xml    packing list with digest, size and type per artifact
//
// Generators are pure: they take a Package, the build's ident.Allocation and
// whatever they depend on (packing list entries, asset map bindings) and
// return an *xmldoc.Document. Writing, digesting and ordering are the
// assembler's job. Identifiers are rendered as "urn:uuid:" URNs and issue
// dates as UTC xs:dateTime values.
package imf
