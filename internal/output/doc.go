// Package output renders tick outputs, port manifests and run summaries.
package output
