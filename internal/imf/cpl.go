package imf

import (
	"strconv"

	"github.com/google/uuid"

	"imfpack/internal/assets"
	"imfpack/internal/ident"
	"imfpack/internal/xmldoc"
)

const (
	CompositionNamespace = "http://www.smpte-ra.org/schemas/2067-3/2016"
	CoreNamespace        = "http://www.smpte-ra.org/schemas/2067-2/2016"
	xsiNamespace         = "http://www.w3.org/2001/XMLSchema-instance"

	trackFileResourceType = "TrackFileResourceType"
)

// Composition builds the CPL. Resources follow registry order and reference
// their asset through TrackFileId; a sequence is emitted only when it has at
// least one resource. alloc must have been allocated for pkg.Assets.Len()
// assets, and every asset must already carry its identifier.
func Composition(pkg *Package, alloc ident.Allocation) *xmldoc.Document {
	root := xmldoc.NewElement("CompositionPlaylist").
		Attr("xmlns", CompositionNamespace).
		Attr("xmlns:cc", CoreNamespace).
		Attr("xmlns:xsi", xsiNamespace)

	root.Add(
		xmldoc.Text("Id", ident.URN(alloc.CPL)),
		xmldoc.Text("Annotation", pkg.Name),
		xmldoc.Text("IssueDate", pkg.issueDate()),
		xmldoc.Text("Issuer", pkg.Issuer),
		xmldoc.Text("Creator", pkg.Creator),
	)
	if pkg.ContentOriginator != "" {
		root.Add(xmldoc.Text("ContentOriginator", pkg.ContentOriginator))
	}
	root.Add(
		xmldoc.Text("ContentTitle", pkg.Name),
		xmldoc.Text("ContentKind", pkg.ContentKind),
		xmldoc.Text("EditRate", pkg.EditRate.String()),
	)

	sequences := xmldoc.NewElement("SequenceList")
	offset := 0
	images, audio := pkg.Assets.Images(), pkg.Assets.Audio()
	if len(images) > 0 {
		sequences.Add(sequence("cc:MainImageSequence", alloc.ImageSequence, alloc.ImageTrack, images, alloc.Resources[offset:offset+len(images)]))
	}
	offset += len(images)
	if len(audio) > 0 {
		sequences.Add(sequence("cc:MainAudioSequence", alloc.AudioSequence, alloc.AudioTrack, audio, alloc.Resources[offset:offset+len(audio)]))
	}

	segment := xmldoc.NewElement("Segment").Add(
		xmldoc.Text("Id", ident.URN(alloc.Segment)),
		sequences,
	)
	root.Add(xmldoc.NewElement("SegmentList").Add(segment))
	return xmldoc.New(root)
}

func sequence(name string, id, track uuid.UUID, list []*assets.Asset, resourceIDs []uuid.UUID) *xmldoc.Element {
	resources := xmldoc.NewElement("ResourceList")
	for i, a := range list {
		resources.Add(resource(a, resourceIDs[i]))
	}
	return xmldoc.NewElement(name).Add(
		xmldoc.Text("Id", ident.URN(id)),
		xmldoc.Text("TrackId", ident.URN(track)),
		resources,
	)
}

func resource(a *assets.Asset, id uuid.UUID) *xmldoc.Element {
	tech := a.Technical
	el := xmldoc.WithAttr("Resource", "xsi:type", trackFileResourceType).Add(
		xmldoc.Text("Id", ident.URN(id)),
	)
	if tech.EditRate.Valid() {
		el.Add(xmldoc.Text("EditRate", tech.EditRate.String()))
	}
	el.Add(xmldoc.Text("IntrinsicDuration", strconv.FormatInt(tech.IntrinsicDuration, 10)))
	if tech.EntryPoint > 0 {
		el.Add(xmldoc.Text("EntryPoint", strconv.FormatInt(tech.EntryPoint, 10)))
	}
	if tech.SourceDuration > 0 {
		el.Add(xmldoc.Text("SourceDuration", strconv.FormatInt(tech.SourceDuration, 10)))
	}
	el.Add(xmldoc.Text("TrackFileId", ident.URN(a.ID)))
	return el
}

// CompositionDuration is the running time of the composition in its own
// edit units: the longer of the image and audio sequences. Resources with a
// different edit rate are converted, rounding up.
func CompositionDuration(pkg *Package) int64 {
	return max(sequenceDuration(pkg.Assets.Images(), pkg.EditRate), sequenceDuration(pkg.Assets.Audio(), pkg.EditRate))
}

func sequenceDuration(list []*assets.Asset, rate assets.Rational) int64 {
	var total int64
	for _, a := range list {
		d := a.Technical.PlayableDuration()
		own := a.Technical.EditRate
		if own.Valid() && rate.Valid() && own != rate {
			num := d * rate.Num * own.Den
			den := rate.Den * own.Num
			d = (num + den - 1) / den
		}
		total += d
	}
	return total
}
