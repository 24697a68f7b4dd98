package xmldoc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"imfpack/internal/faults"
)

func sampleDocument() *Document {
	root := WithAttr("Root", "xmlns", "urn:example")
	root.Add(
		Text("Id", "urn:uuid:1"),
		NewElement("List").Add(
			AttrText("Item", "a", "1", "text & more"),
			NewElement("Empty"),
		),
		nil,
	)
	return New(root)
}

func TestEncodeLayout(t *testing.T) {
	got, err := Bytes(sampleDocument())
	if err != nil {
		t.Fatal(err)
	}
	want := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Root xmlns="urn:example">
  <Id>urn:uuid:1</Id>
  <List>
    <Item a="1">text &amp; more</Item>
    <Empty></Empty>
  </List>
</Root>
`
	if string(got) != want {
		t.Fatalf("encoded document mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Bytes(sampleDocument())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Bytes(sampleDocument())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatal("two encodings of the same tree differ")
	}
}

func TestEncodeRejectsMalformedTrees(t *testing.T) {
	tests := map[string]*Document{
		"nil root":     New(nil),
		"unnamed":      New(NewElement("")),
		"mixed":        New(Text("Root", "x").Add(Text("Child", "y"))),
		"unnamed attr": New(WithAttr("Root", "", "v")),
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Bytes(doc)
			if !errors.Is(err, faults.ErrXMLBuildFailure) {
				t.Fatalf("expected xml build failure, got %v", err)
			}
		})
	}
}

func TestAttrReplaces(t *testing.T) {
	e := WithAttr("Resource", "xsi:type", "A").Attr("xsi:type", "B").Attr("id", "1")
	if len(e.Attrs) != 2 || e.Attrs[0].Value != "B" {
		t.Fatalf("unexpected attrs %+v", e.Attrs)
	}
}

func TestWriteFileLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "VOLINDEX.xml")
	if err := WriteFile(path, sampleDocument()); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "VOLINDEX.xml" {
		t.Fatalf("unexpected directory contents %v", entries)
	}
	want, _ := Bytes(sampleDocument())
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatal("file content differs from encoding")
	}
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", "CPL.xml")
	err := WriteFile(path, sampleDocument())
	if !errors.Is(err, faults.ErrIOFailure) {
		t.Fatalf("expected io failure, got %v", err)
	}
}

func TestWriteFileBadDocumentTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	err := WriteFile(filepath.Join(dir, "CPL.xml"), New(nil))
	if !errors.Is(err, faults.ErrXMLBuildFailure) {
		t.Fatalf("expected xml build failure, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, got %v", entries)
	}
}
