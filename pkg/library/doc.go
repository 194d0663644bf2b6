// Package library resolves document ids to document text and applicability
// context.
//
// DirLibrary reads a directory tree of .txt/.md files where each top-level
// subdirectory is a collection:
//
//	library/
//	  motions/
//	    tro-draft.txt
//	    tro-draft.yaml     # name and context flags
//	  exhibits/
//	    declaration.md
//
// LoadDocumentsJSON reads the editor's documents.json store into a
// MemoryLibrary. A Watcher built on fsnotify invalidates a DirLibrary's
// cached index when files change.
package library
