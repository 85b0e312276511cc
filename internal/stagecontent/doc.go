// Package stagecontent locates per-file result payloads inside a group's
// stage directories.
//
// External OCR and postprocessing services choose their own output filenames,
// which rarely equal the file identifier. Resolution tries an explicit name,
// then "<fileID>.json", then a stem-normalized directory scan. Multiple
// matches are an error, never a silent pick.
package stagecontent
