// Package archive unpacks release assets.
//
// Both zip and gzip-compressed tar archives are extracted in full, clobbering
// existing files. Entries that would land outside the destination directory
// are rejected.
package archive
