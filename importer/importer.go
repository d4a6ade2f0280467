// Package importer uploads the configured translation file to POEditor
// and reports the counts the API returns.
package importer

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Societec/poeditor-connector/config"
	"github.com/Societec/poeditor-connector/poeditor"
)

// Uploader sends cfg.ImportFile to the remote project.
type Uploader interface {
	UploadFile(ctx context.Context, cfg config.Config) (*poeditor.UploadResult, error)
}

var _ Uploader = (*poeditor.Client)(nil)

// UploadAndReport uploads cfg.ImportFile and writes the term and
// translation tables to w. Upload errors are returned as is and nothing
// is written. There is no retry: POEditor allows one upload every 30
// seconds and callers must space their runs accordingly.
func UploadAndReport(ctx context.Context, cfg config.Config, up Uploader, w io.Writer) (*poeditor.UploadResult, error) {
	res, err := up.UploadFile(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := WriteReport(w, res); err != nil {
		return res, fmt.Errorf("writing upload report: %w", err)
	}
	return res, nil
}

// WriteReport renders the counts of an upload as two small tables.
func WriteReport(w io.Writer, res *poeditor.UploadResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Terms")
	fmt.Fprintln(tw, "  parsed\tadded\tdeleted")
	fmt.Fprintf(tw, "  %d\t%d\t%d\n", res.Terms.Parsed, res.Terms.Added, res.Terms.Deleted)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Translations")
	fmt.Fprintln(tw, "  parsed\tadded\tupdated")
	fmt.Fprintf(tw, "  %d\t%d\t%d\n", res.Translations.Parsed, res.Translations.Added, res.Translations.Updated)

	return tw.Flush()
}
