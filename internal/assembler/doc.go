// Package assembler builds a package directory from an asset registry.
//
// A build walks a fixed state machine:
//
//	Initialized -> DirectoryCreated -> AssetsCopied -> IdentifiersAllocated
//	            -> DocumentsGenerated -> Complete
//
// Any failure moves the build to Failed and is returned as a *BuildError
// naming the phase. The package directory is created with os.Mkdir, so a
// build never writes into a directory it did not create. When a build fails
// after that point the partial directory is removed if CleanupOnFailure is
// set; otherwise it is left for the caller and BuildError.Dir names it.
//
// Documents are generated strictly in dependency order: CPL, OPL, PKL (after
// the CPL and OPL are on disk, since it records their digests), VOLINDEX,
// and finally ASSETMAP. Before declaring success the assembler checks that
// the directory holds exactly the files the asset map binds plus ASSETMAP.xml
// and VOLINDEX.xml.
package assembler
