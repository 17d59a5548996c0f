// Package checkpoint keeps a journal of the follows a run has already
// switched, so an interrupted run can be resumed with --resume.
//
// One journal exists per subject user and target visibility. It records
// every account whose change succeeded and is deleted once a run finishes
// without failures.
//
// Journals are stored in platform-specific data directories:
//   - Linux: $XDG_DATA_HOME/pxfollow/checkpoints/ or ~/.local/share/pxfollow/checkpoints/
//   - macOS: ~/Library/Application Support/pxfollow/checkpoints/
//   - Windows: %APPDATA%/pxfollow/checkpoints/
//
// Files are written atomically (temp file, sync, rename) and carry a version.
package checkpoint
