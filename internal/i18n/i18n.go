// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/Xuanwo/go-locale"
	"github.com/vorlif/spreak"
	"golang.org/x/text/language"
)

//go:embed locale/*
var locales embed.FS

var ErrInvalidLocale = errors.New("invalid locale")

// New returns a localizer for loc. An empty locale is detected from the environment. Regional
// variants use the catalog of their base language, languages without a catalog fall back to
// English.
func New(loc string) (*spreak.Localizer, error) {
	requested, err := resolveTag(loc)
	if err != nil {
		return nil, err
	}

	localeFS, err := fs.Sub(locales, "locale")
	if err != nil {
		return nil, fmt.Errorf("failed to load locales: %w", err)
	}
	available, err := catalogs(localeFS)
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}
	_, index, _ := language.NewMatcher(available).Match(requested)
	tag := available[index]

	bundle, err := spreak.NewBundle(
		spreak.WithSourceLanguage(language.English),
		spreak.WithFallbackLanguage(language.English),
		spreak.WithDomainFs("", localeFS),
		spreak.WithLanguage(tag),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create i18n bundle: %w", err)
	}
	return spreak.NewLocalizer(bundle, tag), nil
}

// resolveTag turns a POSIX or BCP 47 locale name into a language tag.
func resolveTag(loc string) (language.Tag, error) {
	name, _, _ := strings.Cut(loc, ".")
	switch strings.ToUpper(name) {
	case "":
		tag, err := locale.Detect()
		if err != nil {
			return language.English, nil
		}
		return tag, nil
	case "C", "POSIX":
		return language.English, nil
	}

	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("%w %q: %w", ErrInvalidLocale, loc, err)
	}
	return tag, nil
}

// catalogs lists the languages with an embedded catalog. English, the source language, comes
// first and is what the matcher falls back to.
func catalogs(fsys fs.FS) ([]language.Tag, error) {
	files, err := fs.Glob(fsys, "*.po")
	if err != nil {
		return nil, err
	}
	tags := []language.Tag{language.English}
	for _, file := range files {
		tag, err := language.Parse(strings.TrimSuffix(path.Base(file), ".po"))
		if err != nil {
			return nil, fmt.Errorf("invalid catalog name %q: %w", file, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
