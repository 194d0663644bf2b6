// Package source loads rule catalogs from the binary, a file, or a Git
// repository.
//
// Every source returns a validated *checklist.Catalog; a malformed rule is
// a load-time error, so a process never starts with a broken catalog.
// GitSource clones the repository on first Load and pulls on later ones,
// authenticating with a token (HTTPS) or an SSH key.
package source
