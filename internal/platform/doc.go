// Package platform maps an operating system and CPU architecture pair to the
// release artifact published for it.
//
// Platform variance is data: adding a platform is a new row in the
// descriptor table, never a new branch.
package platform
