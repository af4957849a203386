// Package fileutil holds the small filesystem helpers dbenv uses for scratch
// directories: creating directories, writing rendered template files
// atomically, and removing directory trees while tolerating paths that are
// already gone.
package fileutil
