// Package weights makes remote model artifacts available on local disk.
//
// A Provisioner downloads an artifact at most once per destination path:
// callers in the same process serialise on a per-path lock and separate
// processes on a lock file beside the destination. Downloads land in a
// temporary file that is renamed into place only after a complete transfer,
// so a partially written artifact is never visible at the destination.
package weights
