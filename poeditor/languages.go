package poeditor

import (
	"context"
	"net/url"

	"github.com/samber/lo"

	"github.com/Societec/poeditor-connector/config"
)

// Language is a project language as returned by /languages/list.
type Language struct {
	Name         string  `json:"name"`
	Code         string  `json:"code"`
	Translations int     `json:"translations"`
	Percentage   float64 `json:"percentage"`
	Updated      string  `json:"updated"`
}

// ProjectLanguages returns the languages of the configured project.
// A project without languages yields an empty slice, not an error.
func (c *Client) ProjectLanguages(ctx context.Context, cfg config.Config) ([]Language, error) {
	form := url.Values{
		"api_token": {cfg.APIToken},
		"id":        {cfg.ProjectID},
	}

	var res struct {
		Languages []Language `json:"languages"`
	}
	if err := c.postForm(ctx, OpListLanguages, cfg.BaseURL+"/languages/list", form, &res); err != nil {
		return nil, err
	}
	if res.Languages == nil {
		return []Language{}, nil
	}
	return res.Languages, nil
}

// ListLanguages returns the language codes of the configured project,
// e.g. [zh-CN en ja]. It returns an empty slice when the project has none.
func (c *Client) ListLanguages(ctx context.Context, cfg config.Config) ([]string, error) {
	langs, err := c.ProjectLanguages(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return lo.Map(langs, func(l Language, _ int) string { return l.Code }), nil
}
