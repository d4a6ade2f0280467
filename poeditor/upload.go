package poeditor

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Societec/poeditor-connector/config"
)

// UploadResult holds the counts POEditor reports after an upload.
type UploadResult struct {
	Terms        TermCounts        `json:"terms"`
	Translations TranslationCounts `json:"translations"`
}

// TermCounts are the term counts of an upload.
type TermCounts struct {
	Parsed  int `json:"parsed"`
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

// TranslationCounts are the translation counts of an upload.
type TranslationCounts struct {
	Parsed  int `json:"parsed"`
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// UploadFile uploads cfg.ImportFile to /projects/upload. The file is
// streamed from disk as part of a multipart form.
//
// POEditor accepts no more than one upload every 30 seconds; UploadFile
// does not enforce or retry this.
func (c *Client) UploadFile(ctx context.Context, cfg config.Config) (*UploadResult, error) {
	f, err := os.Open(cfg.ImportFile)
	if err != nil {
		return nil, fmt.Errorf("upload: opening %s: %w", cfg.ImportFile, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()
		pw.CloseWithError(writeUploadForm(mw, cfg, f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/projects/upload", pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, &Error{Op: OpUpload, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res UploadResult
	if err := c.do(req, OpUpload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// writeUploadForm writes the upload parameters and the file part, then
// closes the multipart writer.
func writeUploadForm(mw *multipart.Writer, cfg config.Config, file io.Reader) error {
	fields := []struct{ name, value string }{
		{"api_token", cfg.APIToken},
		{"id", cfg.ProjectID},
		{"updating", cfg.ImportUpdating},
		{"language", cfg.ImportLanguage},
		{"overwrite", cfg.ImportOverwrite.String()},
		{"sync_terms", cfg.ImportSyncTerms.String()},
		{"fuzzy_trigger", cfg.ImportFuzzyTrigger.String()},
		{"tags", cfg.ImportTags},
	}
	for _, field := range fields {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(cfg.ImportFile))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("reading %s: %w", cfg.ImportFile, err)
	}
	return mw.Close()
}
