package poeditor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Societec/poeditor-connector/config"
)

// RequestExportURL asks /projects/export to generate the file for one
// language and returns its download link. The link expires about ten
// minutes after it is issued.
func (c *Client) RequestExportURL(ctx context.Context, cfg config.Config, lang string) (string, error) {
	form := url.Values{
		"api_token": {cfg.APIToken},
		"id":        {cfg.ProjectID},
		"language":  {lang},
		"type":      {cfg.ExportType},
		"filters":   {cfg.ExportFilters},
		"tags":      {cfg.ExportTags},
	}

	var res struct {
		URL string `json:"url"`
	}
	if err := c.postForm(ctx, OpExport, cfg.BaseURL+"/projects/export", form, &res); err != nil {
		return "", withLanguage(err, lang)
	}
	if res.URL == "" {
		return "", &Error{Op: OpExport, Kind: KindSemantic, Field: "url", Language: lang}
	}

	link, err := decodeURI(res.URL)
	if err == nil {
		err = checkDownloadURL(link)
	}
	if err != nil {
		return "", &Error{Op: OpExport, Kind: KindSemantic, Field: "url", Language: lang, Err: err}
	}
	return link, nil
}

// Download fetches a link returned by RequestExportURL and streams the
// body into w. It returns the number of bytes written.
func (c *Client) Download(ctx context.Context, link string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, &Error{Op: OpDownload, Kind: KindTransport, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	c.log.WithField("op", OpDownload).Debugf("GET %s", req.URL.Redacted())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &Error{Op: OpDownload, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return 0, &Error{Op: OpDownload, Kind: KindHTTPStatus, StatusCode: resp.StatusCode}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &Error{Op: OpDownload, Kind: KindTransport, Err: err}
	}
	return n, nil
}

// uriReserved are the characters decodeURI leaves percent-encoded.
const uriReserved = ";/?:@&=+$,#"

// decodeURI percent-decodes a URI like ECMAScript's decodeURI: escapes of
// reserved characters are kept so query strings of signed links survive.
func decodeURI(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape at offset %d", i)
		}
		v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid escape %q", s[i:i+3])
		}
		if strings.IndexByte(uriReserved, byte(v)) >= 0 {
			b.WriteString(s[i : i+3])
		} else {
			b.WriteByte(byte(v))
		}
		i += 2
	}

	out := b.String()
	if !utf8.ValidString(out) {
		return "", errors.New("escapes do not form valid UTF-8")
	}
	return out, nil
}

func checkDownloadURL(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("not an absolute http(s) url: %q", link)
	}
	return nil
}
