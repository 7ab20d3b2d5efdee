// Package launcher runs the installed binthere executable on behalf of the
// wrapper command. Arguments and standard streams are handed over untouched,
// and the child's exit status or terminating signal is mirrored by the caller.
package launcher
