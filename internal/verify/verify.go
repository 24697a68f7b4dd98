// Package verify re-reads a finished package and checks it is internally
// consistent: every file is bound by the asset map, every packing list digest
// and size matches the bytes on disk, and every identifier the composition
// and output profile reference is declared.
package verify

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imfpack/internal/digest"
	"imfpack/internal/faults"
	"imfpack/internal/imf"
)

// Problem is one inconsistency found in a package.
type Problem struct {
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.File == "" {
		return p.Message
	}
	return p.File + ": " + p.Message
}

// Report summarizes a verification run.
type Report struct {
	Dir           string    `json:"dir"`
	AssetMap      string    `json:"asset_map"`
	PackingList   string    `json:"packing_list"`
	Compositions  []string  `json:"compositions"`
	OutputProfile []string  `json:"output_profiles"`
	FilesChecked  int       `json:"files_checked"`
	BytesChecked  int64     `json:"bytes_checked"`
	Problems      []Problem `json:"problems"`
}

// OK reports whether no problem was found.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) addf(file, format string, args ...any) {
	r.Problems = append(r.Problems, Problem{File: file, Message: fmt.Sprintf(format, args...)})
}

type binding struct {
	path   string
	length int64
}

// Package verifies the package directory dir. An error means the package
// could not be read at all; inconsistencies are reported as problems.
func Package(ctx context.Context, dir string) (*Report, error) {
	report := &Report{Dir: dir}

	am, err := imf.ReadAssetMap(filepath.Join(dir, imf.AssetMapFile))
	if err != nil {
		return report, err
	}
	report.AssetMap = am.ID

	bound := make(map[string]binding, len(am.Assets))
	declared := map[string]string{am.ID: imf.AssetMapFile}
	for _, a := range am.Assets {
		if len(a.Chunks) != 1 {
			report.addf(imf.AssetMapFile, "asset %s has %d chunks, want 1", a.ID, len(a.Chunks))
			continue
		}
		ch := a.Chunks[0]
		if !validPath(ch.Path) {
			report.addf(imf.AssetMapFile, "asset %s has path %q outside the volume", a.ID, ch.Path)
			continue
		}
		if _, dup := bound[a.ID]; dup {
			report.addf(imf.AssetMapFile, "asset %s bound more than once", a.ID)
			continue
		}
		bound[a.ID] = binding{path: ch.Path, length: ch.Length}
	}

	pkls := am.PackingLists()
	if len(pkls) == 0 {
		return report, faults.Wrap(faults.ErrValidation, "verify", imf.AssetMapFile, "no packing list bound", nil)
	}
	if len(pkls) > 1 {
		report.addf(imf.AssetMapFile, "%d packing lists bound, checking the first", len(pkls))
	}
	pklBinding, ok := bound[pkls[0].ID]
	if !ok {
		return report, faults.Wrap(faults.ErrValidation, "verify", imf.AssetMapFile, "packing list has no usable chunk", nil)
	}
	pkl, err := imf.ReadPackingList(filepath.Join(dir, pklBinding.path))
	if err != nil {
		return report, err
	}
	report.PackingList = pkl.ID
	if pkl.ID != pkls[0].ID {
		report.addf(pklBinding.path, "packing list id %s does not match asset map entry %s", pkl.ID, pkls[0].ID)
	}
	declare(report, declared, pkl.ID, pklBinding.path)
	checkLength(report, dir, pklBinding)

	listed := make(map[string]imf.PackingListAsset, len(pkl.Assets))
	for _, a := range pkl.Assets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, dup := listed[a.ID]; dup {
			report.addf(pklBinding.path, "asset %s listed more than once", a.ID)
			continue
		}
		listed[a.ID] = a
		b, ok := bound[a.ID]
		if !ok {
			report.addf(pklBinding.path, "asset %s (%s) is not bound by the asset map", a.ID, a.OriginalFileName)
			continue
		}
		checkAsset(report, dir, b, a)
	}
	for id, b := range bound {
		if _, ok := listed[id]; !ok && id != pkl.ID {
			report.addf(b.path, "bound as %s but not listed in the packing list", id)
		}
	}

	checkDirectory(report, dir, bound)

	var compositions []*imf.CompositionDocument
	var profiles []*imf.OutputProfileDocument
	for _, a := range pkl.Assets {
		b, ok := bound[a.ID]
		if !ok || !strings.EqualFold(filepath.Ext(b.path), ".xml") {
			continue
		}
		path := filepath.Join(dir, b.path)
		switch root, _ := rootElement(path); root {
		case "CompositionPlaylist":
			cpl, err := imf.ReadComposition(path)
			if err != nil {
				report.addf(b.path, "%v", err)
				continue
			}
			if cpl.ID != a.ID {
				report.addf(b.path, "composition id %s does not match packing list entry %s", cpl.ID, a.ID)
			}
			declare(report, declared, cpl.ID, b.path)
			compositions = append(compositions, cpl)
			report.Compositions = append(report.Compositions, cpl.ID)
		case "OutputProfileList":
			opl, err := imf.ReadOutputProfile(path)
			if err != nil {
				report.addf(b.path, "%v", err)
				continue
			}
			if opl.ID != a.ID {
				report.addf(b.path, "output profile id %s does not match packing list entry %s", opl.ID, a.ID)
			}
			declare(report, declared, opl.ID, b.path)
			profiles = append(profiles, opl)
			report.OutputProfile = append(report.OutputProfile, opl.ID)
		}
	}
	if len(compositions) == 0 {
		report.addf("", "no composition playlist in package")
	}
	for _, a := range pkl.Assets {
		b, ok := bound[a.ID]
		if !ok {
			continue
		}
		if file, seen := declared[a.ID]; seen && file == b.path {
			continue
		}
		declare(report, declared, a.ID, b.path)
	}

	cplIDs := make(map[string]bool, len(compositions))
	for _, cpl := range compositions {
		cplIDs[cpl.ID] = true
		checkComposition(report, cpl, listed, bound, declared)
	}
	for _, opl := range profiles {
		if !cplIDs[opl.CompositionPlaylistID] {
			report.addf(bound[opl.ID].path, "references composition %s which is not in the package", opl.CompositionPlaylistID)
		}
	}
	return report, nil
}

func declare(report *Report, declared map[string]string, id, file string) {
	if prev, dup := declared[id]; dup {
		report.addf(file, "identifier %s already declared by %s", id, prev)
		return
	}
	declared[id] = file
}

func checkAsset(report *Report, dir string, b binding, a imf.PackingListAsset) {
	res, err := digest.File(filepath.Join(dir, b.path))
	if err != nil {
		report.addf(b.path, "cannot digest: %v", err)
		return
	}
	report.FilesChecked++
	report.BytesChecked += res.Size
	if res.Digest != a.Hash {
		report.addf(b.path, "digest %s does not match packing list %s", res.Digest, a.Hash)
	}
	if res.Size != a.Size {
		report.addf(b.path, "size %d does not match packing list %d", res.Size, a.Size)
	}
	if res.Size != b.length {
		report.addf(b.path, "size %d does not match asset map chunk length %d", res.Size, b.length)
	}
}

func checkLength(report *Report, dir string, b binding) {
	info, err := os.Stat(filepath.Join(dir, b.path))
	if err != nil {
		report.addf(b.path, "cannot stat: %v", err)
		return
	}
	if info.Size() != b.length {
		report.addf(b.path, "size %d does not match asset map chunk length %d", info.Size(), b.length)
	}
}

func checkDirectory(report *Report, dir string, bound map[string]binding) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		report.addf("", "cannot list package: %v", err)
		return
	}
	byPath := make(map[string]bool, len(bound))
	for _, b := range bound {
		byPath[b.path] = true
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		present[name] = true
		if name == imf.AssetMapFile || name == imf.VolumeIndexFile {
			continue
		}
		if !byPath[name] {
			report.addf(name, "file is not bound by the asset map")
		}
	}
	if !present[imf.VolumeIndexFile] {
		report.addf(imf.VolumeIndexFile, "missing")
	}
	missing := make([]string, 0)
	for path := range byPath {
		if !present[path] {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)
	for _, path := range missing {
		report.addf(path, "bound by the asset map but missing")
	}
}

func checkComposition(report *Report, cpl *imf.CompositionDocument, listed map[string]imf.PackingListAsset, bound map[string]binding, declared map[string]string) {
	file := bound[cpl.ID].path
	for _, seg := range cpl.Segments {
		declare(report, declared, seg.ID, file)
		for _, seqs := range [][]imf.Sequence{seg.ImageSequences, seg.AudioSequences} {
			for _, seq := range seqs {
				declare(report, declared, seq.ID, file)
				for _, r := range seq.Resources {
					declare(report, declared, r.ID, file)
				}
			}
		}
	}
	for _, id := range cpl.TrackFileIDs() {
		if _, ok := listed[id]; !ok {
			report.addf(file, "track file %s is not listed in the packing list", id)
		}
		if _, ok := bound[id]; !ok {
			report.addf(file, "track file %s is not bound by the asset map", id)
		}
	}
}

func validPath(p string) bool {
	if p == "" || filepath.IsAbs(p) {
		return false
	}
	clean := filepath.Clean(p)
	return clean == p && clean != "." && !strings.HasPrefix(clean, "..") && filepath.Base(clean) == clean
}

// rootElement returns the local name of the document element at path.
func rootElement(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("%s: no root element", path)
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
