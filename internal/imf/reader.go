package imf

import (
	"encoding/xml"
	"os"

	"imfpack/internal/faults"
)

// AssetMapDocument is the decoded form of ASSETMAP.xml.
type AssetMapDocument struct {
	XMLName     xml.Name        `xml:"AssetMap"`
	ID          string          `xml:"Id"`
	Creator     string          `xml:"Creator"`
	VolumeCount int             `xml:"VolumeCount"`
	IssueDate   string          `xml:"IssueDate"`
	Issuer      string          `xml:"Issuer"`
	Assets      []AssetMapAsset `xml:"AssetList>Asset"`
}

// AssetMapAsset is one AssetList entry.
type AssetMapAsset struct {
	ID          string  `xml:"Id"`
	PackingList bool    `xml:"PackingList"`
	Chunks      []Chunk `xml:"ChunkList>Chunk"`
}

// Chunk locates an asset within the volume.
type Chunk struct {
	Path        string `xml:"Path"`
	VolumeIndex int    `xml:"VolumeIndex"`
	Offset      int64  `xml:"Offset"`
	Length      int64  `xml:"Length"`
}

// PackingLists returns the entries flagged as packing lists.
func (d *AssetMapDocument) PackingLists() []AssetMapAsset {
	var out []AssetMapAsset
	for _, a := range d.Assets {
		if a.PackingList {
			out = append(out, a)
		}
	}
	return out
}

// PackingListDocument is the decoded form of a PKL.
type PackingListDocument struct {
	XMLName        xml.Name           `xml:"PackingList"`
	ID             string             `xml:"Id"`
	AnnotationText string             `xml:"AnnotationText"`
	IssueDate      string             `xml:"IssueDate"`
	Issuer         string             `xml:"Issuer"`
	Creator        string             `xml:"Creator"`
	Assets         []PackingListAsset `xml:"AssetList>Asset"`
}

// PackingListAsset is one artifact entry of a PKL.
type PackingListAsset struct {
	ID               string `xml:"Id"`
	AnnotationText   string `xml:"AnnotationText"`
	Hash             string `xml:"Hash"`
	Size             int64  `xml:"Size"`
	Type             string `xml:"Type"`
	OriginalFileName string `xml:"OriginalFileName"`
}

// CompositionDocument is the decoded form of a CPL.
type CompositionDocument struct {
	XMLName           xml.Name  `xml:"CompositionPlaylist"`
	ID                string    `xml:"Id"`
	Annotation        string    `xml:"Annotation"`
	IssueDate         string    `xml:"IssueDate"`
	Issuer            string    `xml:"Issuer"`
	Creator           string    `xml:"Creator"`
	ContentOriginator string    `xml:"ContentOriginator"`
	ContentTitle      string    `xml:"ContentTitle"`
	ContentKind       string    `xml:"ContentKind"`
	EditRate          string    `xml:"EditRate"`
	Segments          []Segment `xml:"SegmentList>Segment"`
}

// Segment is one CPL segment.
type Segment struct {
	ID             string     `xml:"Id"`
	ImageSequences []Sequence `xml:"SequenceList>MainImageSequence"`
	AudioSequences []Sequence `xml:"SequenceList>MainAudioSequence"`
}

// Sequence is a main image or audio sequence.
type Sequence struct {
	ID        string     `xml:"Id"`
	TrackID   string     `xml:"TrackId"`
	Resources []Resource `xml:"ResourceList>Resource"`
}

// Resource is a track file resource.
type Resource struct {
	ID                string `xml:"Id"`
	Type              string `xml:"type,attr"`
	EditRate          string `xml:"EditRate"`
	IntrinsicDuration int64  `xml:"IntrinsicDuration"`
	EntryPoint        int64  `xml:"EntryPoint"`
	SourceDuration    int64  `xml:"SourceDuration"`
	TrackFileID       string `xml:"TrackFileId"`
}

// TrackFileIDs lists every TrackFileId in playback order, images first.
func (d *CompositionDocument) TrackFileIDs() []string {
	var ids []string
	for _, seg := range d.Segments {
		for _, seqs := range [][]Sequence{seg.ImageSequences, seg.AudioSequences} {
			for _, seq := range seqs {
				for _, r := range seq.Resources {
					ids = append(ids, r.TrackFileID)
				}
			}
		}
	}
	return ids
}

// OutputProfileDocument is the decoded form of an OPL.
type OutputProfileDocument struct {
	XMLName               xml.Name `xml:"OutputProfileList"`
	ID                    string   `xml:"Id"`
	Annotation            string   `xml:"Annotation"`
	IssueDate             string   `xml:"IssueDate"`
	Issuer                string   `xml:"Issuer"`
	Creator               string   `xml:"Creator"`
	CompositionPlaylistID string   `xml:"CompositionPlaylistId"`
}

// ReadAssetMap decodes the asset map at path.
func ReadAssetMap(path string) (*AssetMapDocument, error) {
	var doc AssetMapDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadPackingList decodes the packing list at path.
func ReadPackingList(path string) (*PackingListDocument, error) {
	var doc PackingListDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadComposition decodes the composition playlist at path.
func ReadComposition(path string) (*CompositionDocument, error) {
	var doc CompositionDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadOutputProfile decodes the output profile list at path.
func ReadOutputProfile(path string) (*OutputProfileDocument, error) {
	var doc OutputProfileDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func readDocument(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return faults.Wrap(faults.ErrIOFailure, "read", path, "open", err)
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil {
		return faults.Wrap(faults.ErrValidation, "read", path, "decode", err)
	}
	return nil
}
