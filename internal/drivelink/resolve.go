// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package drivelink resolves Google Drive share links into canonical
// direct-download references. Resolution is pure string classification:
// no network access, no filesystem access.
package drivelink

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SourceKind classifies the share-link format a Reference was parsed from.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceBareID
	SourcePath
	SourceQuery
	SourcePreview
)

func (k SourceKind) String() string {
	switch k {
	case SourceBareID:
		return "bare-id"
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourcePreview:
		return "preview"
	default:
		return "unknown"
	}
}

// Reference is a canonical pointer to a remotely hosted image. Two
// References are the same image iff their FileIDs match, regardless of the
// share-link form they were parsed from.
type Reference struct {
	// FileID is the canonical Drive file identifier.
	FileID string

	// Source records which link format the ID was extracted from.
	Source SourceKind

	// Raw is the original string as it appeared in the CSV field.
	Raw string
}

// Equal reports whether two references point at the same file.
func (r Reference) Equal(other Reference) bool {
	return r.FileID == other.FileID
}

// ResolutionError reports a share link that matched none of the recognized
// formats. It is a per-link value; callers record it and move on.
type ResolutionError struct {
	Raw string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unrecognized share link format: %q", e.Raw)
}

// DownloadBase is the direct-download endpoint. A var so tests can
// substitute httptest servers.
var DownloadBase = "https://drive.google.com/uc?export=download"

// bareIDPattern matches a raw Drive file ID pasted without any URL around
// it. Real file IDs are 25+ characters of the URL-safe alphabet.
var bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{25,}$`)

// pathIDPattern matches the /d/<id>/ path segment used by
// "/file/d/<id>/view" and "/file/d/<id>/preview" share links.
var pathIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// idParamPattern validates the value of an id= query parameter, covering
// "open?id=<id>" and "uc?export=download&id=<id>" forms.
var idParamPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Resolve parses a single raw share string into a Reference. Matchers are
// tried in a fixed priority order: bare ID, path segment, query parameter.
// Input matching none of them yields a *ResolutionError.
func Resolve(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, &ResolutionError{Raw: raw}
	}

	if bareIDPattern.MatchString(trimmed) {
		return Reference{FileID: trimmed, Source: SourceBareID, Raw: raw}, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Reference{}, &ResolutionError{Raw: raw}
	}

	if m := pathIDPattern.FindStringSubmatch(u.Path); m != nil {
		kind := SourcePath
		if strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/preview") {
			kind = SourcePreview
		}
		return Reference{FileID: m[1], Source: kind, Raw: raw}, nil
	}

	if id := u.Query().Get("id"); id != "" && idParamPattern.MatchString(id) {
		return Reference{FileID: id, Source: SourceQuery, Raw: raw}, nil
	}

	return Reference{}, &ResolutionError{Raw: raw}
}

// ResolveAll resolves each entry independently, isolating failures per
// entry: one malformed link never prevents its siblings from resolving.
// The returned slices preserve input order within their category.
func ResolveAll(raws []string) (refs []Reference, failures []*ResolutionError) {
	for _, raw := range raws {
		ref, err := Resolve(raw)
		if err != nil {
			var resErr *ResolutionError
			if re, ok := err.(*ResolutionError); ok {
				resErr = re
			} else {
				resErr = &ResolutionError{Raw: raw}
			}
			failures = append(failures, resErr)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, failures
}

// DownloadURL returns the canonical direct-download URL for a reference.
func DownloadURL(ref Reference) string {
	return DownloadBase + "&id=" + url.QueryEscape(ref.FileID)
}

// ConfirmURL returns the download URL with the interstitial confirmation
// token attached. Used for the single confirm hop after a virus-scan
// warning page.
func ConfirmURL(ref Reference, token string) string {
	return DownloadURL(ref) + "&confirm=" + url.QueryEscape(token)
}
