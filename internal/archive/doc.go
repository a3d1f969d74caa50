// Package archive stores raw usage responses on disk.
//
// Each response is written to the data folder under a structured name
//
//	vue_<device gid>_<channel>_<start>-<end>_<scale>.json
//
// with start and end in compact UTC form (20060102T150405Z). After the file's
// points have been written to every sink it is moved to
// archive/YYYY-MM-DD/, dated by the window start. Files still in the data
// folder are pending and can be replayed.
//
// ParseName is the inverse of Name and rejects anything that does not match
// the schema exactly, so unrelated files in the folder are never ingested.
package archive
