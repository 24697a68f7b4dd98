package imf

import "imfpack/internal/xmldoc"

// VolumeIndex builds the single-volume index document.
func VolumeIndex() *xmldoc.Document {
	return xmldoc.New(xmldoc.NewElement("VolumeIndex").
		Attr("xmlns", AssetMapNamespace).
		Add(xmldoc.Text("Index", "1")))
}
