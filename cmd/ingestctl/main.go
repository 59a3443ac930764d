// Command ingestctl runs the ingestion pipeline from the shell.
//
//	go run ./cmd/ingestctl ingest --owner U1 a.pdf b.pdf
//	go run ./cmd/ingestctl list --owner U1
//	go run ./cmd/ingestctl extract a.pdf
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
