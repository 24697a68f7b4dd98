package xmldoc

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"

	"imfpack/internal/faults"
)

// Prologue is written ahead of every document.
const Prologue = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const indent = "  "

// Encode serializes doc to w.
func Encode(w io.Writer, doc *Document) error {
	if doc == nil || doc.Root == nil {
		return faults.Wrap(faults.ErrXMLBuildFailure, "serialize", "", "document has no root element", nil)
	}
	if _, err := io.WriteString(w, Prologue); err != nil {
		return faults.Wrap(faults.ErrIOFailure, "serialize", "prologue", "", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", indent)
	if err := encodeElement(enc, doc.Root); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return faults.Wrap(faults.ErrIOFailure, "serialize", doc.Root.Name, "flush", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return faults.Wrap(faults.ErrIOFailure, "serialize", doc.Root.Name, "", err)
	}
	return nil
}

// Bytes serializes doc into memory.
func Bytes(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serializes doc and places it at path. The document is encoded in
// full before the file is touched, and the file only appears under its final
// name once completely written.
func WriteFile(path string, doc *Document) error {
	payload, err := Bytes(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return faults.Wrap(faults.ErrIOFailure, "write", path, "create temp", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return faults.Wrap(faults.ErrIOFailure, "write", path, "", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return faults.Wrap(faults.ErrIOFailure, "write", path, "close", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return faults.Wrap(faults.ErrIOFailure, "write", path, "chmod", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return faults.Wrap(faults.ErrIOFailure, "write", path, "rename", err)
	}
	return nil
}

func encodeElement(enc *xml.Encoder, e *Element) error {
	if e.Name == "" {
		return faults.Wrap(faults.ErrXMLBuildFailure, "serialize", "", "element without a name", nil)
	}
	if e.Text != "" && len(e.Children) > 0 {
		return faults.Wrap(faults.ErrXMLBuildFailure, "serialize", e.Name, "mixed text and child content", nil)
	}
	start := xml.StartElement{Name: xml.Name{Local: e.Name}}
	for _, a := range e.Attrs {
		if a.Name == "" {
			return faults.Wrap(faults.ErrXMLBuildFailure, "serialize", e.Name, "attribute without a name", nil)
		}
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return encodeErr(e.Name, err)
	}
	if e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return encodeErr(e.Name, err)
		}
	}
	for _, c := range e.Children {
		if err := encodeElement(enc, c); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return encodeErr(e.Name, err)
	}
	return nil
}

func encodeErr(name string, err error) error {
	return faults.Wrap(faults.ErrXMLBuildFailure, "serialize", name, "encode", err)
}
