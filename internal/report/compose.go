// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report composes the selected record and its acquired images
// into the fixed nine-section report document and renders it to PDF.
// Composition is pure given its inputs; rendering touches only the asset
// and logo files the document already points at.
package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/biladi/heritage-report/internal/drivelink"
	"github.com/biladi/heritage-report/internal/fetch"
	"github.com/biladi/heritage-report/internal/record"
	"github.com/biladi/heritage-report/pkg/types"
)

// Title is the fixed report heading.
const Title = "Heritage Site Assessment Report"

// Image is one renderable image: a validated asset's location and
// dimensions.
type Image struct {
	Path   string
	Format string // "jpg" or "png"
	Width  int
	Height int
}

// ImageBlock is the photographic evidence of the documentation section.
// Primary is nil when the primary photo failed to resolve or acquire; the
// slot renders empty.
type ImageBlock struct {
	Primary    *Image
	Additional []Image
}

// FieldRow is one populated label/value row of a section.
type FieldRow struct {
	Label string
	Value string
}

// Section is one titled block of the report. Rows contains only populated
// fields; Images is non-nil only for the documentation section.
type Section struct {
	Title  string
	Rows   []FieldRow
	Images *ImageBlock
}

// Document is the fully composed report. Built once, immutable after
// composition, serialized by Render.
type Document struct {
	Title     string
	Logos     []string
	Generated time.Time
	Sections  []Section
}

// ComposeInput carries everything composition reads. The record and asset
// map are borrowed, never mutated.
type ComposeInput struct {
	Record *types.Record

	// Primary and Additional are the resolved references from the two
	// image fields, in field order.
	Primary    []drivelink.Reference
	Additional []drivelink.Reference

	// Assets maps canonical file ID to acquisition outcome.
	Assets map[string]*fetch.Asset

	// LogoDir is the directory searched for the fixed-name logo files,
	// normally the input CSV's directory.
	LogoDir string

	// Generated is the run timestamp, stamped into the document.
	Generated time.Time
}

// Compose builds the nine fixed sections from the record, attaching the
// image block to the documentation section. Blank fields are suppressed.
func Compose(in ComposeInput) *Document {
	doc := &Document{
		Title:     Title,
		Logos:     findLogos(in.LogoDir),
		Generated: in.Generated,
		Sections:  make([]Section, 0, len(sectionDefs)),
	}

	for i, def := range sectionDefs {
		sec := Section{Title: def.Title}
		for _, fm := range def.Fields {
			value := in.Record.Get(fm.Column)
			if value == "" {
				continue
			}
			if fm.Column == types.DateColumn {
				value = displayDate(value)
			}
			sec.Rows = append(sec.Rows, FieldRow{Label: fm.Label, Value: value})
		}
		if i == documentationSection {
			sec.Images = buildImageBlock(in)
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc
}

// buildImageBlock maps resolved references to their successful assets. A
// failed or missing acquisition leaves its slot empty; it never errors.
func buildImageBlock(in ComposeInput) *ImageBlock {
	block := &ImageBlock{}
	for _, ref := range in.Primary {
		if img := assetImage(in.Assets, ref); img != nil {
			block.Primary = img
			break
		}
	}
	for _, ref := range in.Additional {
		if img := assetImage(in.Assets, ref); img != nil {
			block.Additional = append(block.Additional, *img)
		}
	}
	return block
}

func assetImage(assets map[string]*fetch.Asset, ref drivelink.Reference) *Image {
	a := assets[ref.FileID]
	if !a.OK() {
		return nil
	}
	return &Image{Path: a.Path, Format: a.Format, Width: a.Width, Height: a.Height}
}

// findLogos returns the logo files that actually exist, in fixed order.
func findLogos(dir string) []string {
	if dir == "" {
		return nil
	}
	var logos []string
	for _, name := range logoFilenames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			logos = append(logos, path)
		}
	}
	return logos
}

// displayDate reformats the assessment date for display, leaving values it
// cannot parse untouched.
func displayDate(value string) string {
	t, err := record.ParseAssessmentDate(value)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}
