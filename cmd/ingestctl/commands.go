package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pdfvault-backend/internal/bootstrap"
	"pdfvault-backend/internal/documents"
	"pdfvault-backend/internal/extract"
	"pdfvault-backend/internal/shared/config"
)

// Files on disk carry no declared type, so the extension decides.
const octetStream = "application/octet-stream"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ingestctl",
		Short:         "Ingest PDFs and inspect stored documents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newIngestCmd(), newListCmd(), newExtractCmd())
	return root
}

func newIngestCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Extract, upload and persist one or more PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if !extract.IsPDFType(octetStream, path) {
					return fmt.Errorf("%s: only .pdf files can be ingested", path)
				}
			}

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			files := make([]documents.UploadedFile, 0, len(args))
			for _, path := range args {
				data, err := readLimited(path, app.Config.MaxFileSizeBytes)
				if err != nil {
					return err
				}
				files = append(files, documents.UploadedFile{
					Name:        filepath.Base(path),
					ContentType: "application/pdf",
					Data:        data,
				})
			}

			res, err := app.DocumentsService.Ingest(cmd.Context(), owner, files)
			if err != nil {
				var fe *documents.FileError
				if errors.As(err, &fe) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d file(s) stored before %s failed\n", res.Count, fe.FileName)
				}
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Documents)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id the documents are stored under")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		owner  string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.DocumentsService.List(cmd.Context(), owner, limit, offset)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Print the normalized per-page text of a PDF without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := extract.NewForBackend(backend)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			raw, err := ex.ExtractPages(cmd.Context(), data)
			if err != nil {
				return err
			}
			for i := range raw {
				raw[i] = extract.Normalize(raw[i])
			}
			return writeJSON(cmd.OutOrStdout(), documents.ExtractedText{Pages: documents.PagesFromText(raw)})
		},
	}
	cmd.Flags().StringVar(&backend, "backend", extract.BackendLedongthuc, "pdf backend (ledongthuc|pdfcpu)")
	return cmd
}

func loadApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.BuildCore(cmd.Context(), cfg)
}

func readLimited(path string, limit int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%s: %d bytes exceeds limit of %d", path, info.Size(), limit)
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
