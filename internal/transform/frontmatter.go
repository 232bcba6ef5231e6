package transform

import (
	"bytes"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Flavors of frontmatter.
const (
	FlavorZola = "zola"
	FlavorHugo = "hugo"
)

// Meta is the flavor-neutral header of one article.
type Meta struct {
	ID          int64
	UUID        string
	Title       string
	Slug        string
	Description string
	Date        *time.Time
	Updated     *time.Time
	Draft       bool
	Tags        []string
	Author      string
	AuthorSlug  string
	Language    string
	Image       string
	Featured    bool
	Page        bool
	Visibility  string
	MetaTitle   string
	BodyFormat  string
}

type zolaFrontMatter struct {
	Title       string         `toml:"title"`
	Slug        string         `toml:"slug,omitempty"`
	Description string         `toml:"description,omitempty"`
	Date        *time.Time     `toml:"date,omitempty"`
	Updated     *time.Time     `toml:"updated,omitempty"`
	Draft       bool           `toml:"draft"`
	Authors     []string       `toml:"authors,omitempty"`
	Taxonomies  zolaTaxonomies `toml:"taxonomies"`
	Extra       zolaExtra      `toml:"extra"`
}

type zolaTaxonomies struct {
	Tags []string `toml:"tags"`
}

type zolaExtra struct {
	ID         int64  `toml:"id"`
	UUID       string `toml:"uuid,omitempty"`
	Author     string `toml:"author,omitempty"`
	AuthorSlug string `toml:"author_slug,omitempty"`
	Language   string `toml:"language,omitempty"`
	Image      string `toml:"image,omitempty"`
	Featured   bool   `toml:"featured"`
	Page       bool   `toml:"page"`
	Visibility string `toml:"visibility,omitempty"`
	MetaTitle  string `toml:"meta_title,omitempty"`
	BodyFormat string `toml:"body_format"`
}

type hugoFrontMatter struct {
	Title       string     `yaml:"title"`
	Slug        string     `yaml:"slug,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Date        *time.Time `yaml:"date,omitempty"`
	Lastmod     *time.Time `yaml:"lastmod,omitempty"`
	Draft       bool       `yaml:"draft"`
	Author      string     `yaml:"author,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"`
	Image       string     `yaml:"image,omitempty"`
	Featured    bool       `yaml:"featured,omitempty"`
	Language    string     `yaml:"language,omitempty"`
	Params      hugoParams `yaml:"params"`
}

type hugoParams struct {
	ID         int64  `yaml:"ghost_id"`
	UUID       string `yaml:"ghost_uuid,omitempty"`
	AuthorSlug string `yaml:"author_slug,omitempty"`
	Page       bool   `yaml:"page,omitempty"`
	Visibility string `yaml:"visibility,omitempty"`
	MetaTitle  string `yaml:"meta_title,omitempty"`
	BodyFormat string `yaml:"body_format"`
}

// Encode renders meta followed by body in the given flavor.
func Encode(flavor string, meta Meta, body string) ([]byte, error) {
	var buf bytes.Buffer
	switch flavor {
	case FlavorHugo:
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(hugoFrom(meta)); err != nil {
			return nil, fmt.Errorf("encode yaml frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml frontmatter: %w", err)
		}
		buf.WriteString("---\n")
	default:
		buf.WriteString("+++\n")
		enc := toml.NewEncoder(&buf)
		enc.Indent = ""
		if err := enc.Encode(zolaFrom(meta)); err != nil {
			return nil, fmt.Errorf("encode toml frontmatter: %w", err)
		}
		buf.WriteString("+++\n")
	}
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func zolaFrom(meta Meta) zolaFrontMatter {
	fm := zolaFrontMatter{
		Title:       meta.Title,
		Slug:        meta.Slug,
		Description: meta.Description,
		Date:        meta.Date,
		Updated:     meta.Updated,
		Draft:       meta.Draft,
		Taxonomies:  zolaTaxonomies{Tags: nonNil(meta.Tags)},
		Extra: zolaExtra{
			ID:         meta.ID,
			UUID:       meta.UUID,
			Author:     meta.Author,
			AuthorSlug: meta.AuthorSlug,
			Language:   meta.Language,
			Image:      meta.Image,
			Featured:   meta.Featured,
			Page:       meta.Page,
			Visibility: meta.Visibility,
			MetaTitle:  meta.MetaTitle,
			BodyFormat: meta.BodyFormat,
		},
	}
	if meta.Author != "" {
		fm.Authors = []string{meta.Author}
	}
	return fm
}

func hugoFrom(meta Meta) hugoFrontMatter {
	return hugoFrontMatter{
		Title:       meta.Title,
		Slug:        meta.Slug,
		Description: meta.Description,
		Date:        meta.Date,
		Lastmod:     meta.Updated,
		Draft:       meta.Draft,
		Author:      meta.Author,
		Tags:        meta.Tags,
		Image:       meta.Image,
		Featured:    meta.Featured,
		Language:    meta.Language,
		Params: hugoParams{
			ID:         meta.ID,
			UUID:       meta.UUID,
			AuthorSlug: meta.AuthorSlug,
			Page:       meta.Page,
			Visibility: meta.Visibility,
			MetaTitle:  meta.MetaTitle,
			BodyFormat: meta.BodyFormat,
		},
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
