// Package table reads tabular files into immutable column-oriented
// snapshots.
//
// CSV, XLSX, XLS and JSON (an array of objects) are supported. The first row
// of a delimited or spreadsheet source names the columns; names are trimmed,
// spaces become underscores and other punctuation is dropped. Cells are typed
// as they are read, and the usual missing-value spellings (NA, NULL, #N/A and
// friends) become nulls.
//
// Every failure surfaces as a *LoadError whose Kind tells callers whether the
// file was missing, unreadable, empty or too slow to read.
package table
