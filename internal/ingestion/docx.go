package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/types"
)

const docxBody = "word/document.xml"

// DOCXReader extracts paragraph text from a Word document
type DOCXReader struct{}

// Read implements Reader
func (DOCXReader) Read(_ context.Context, data []byte, _ string) (*Document, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ReadError{Kind: types.SourceDOCX, Message: "not a zip archive", Cause: err}
	}

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, &ReadError{Kind: types.SourceDOCX, Message: "missing " + docxBody}
	}

	rc, err := body.Open()
	if err != nil {
		return nil, &ReadError{Kind: types.SourceDOCX, Message: "failed to open document body", Cause: err}
	}
	defer func() { _ = rc.Close() }()

	text, pages, err := docxText(rc)
	if err != nil {
		return nil, &ReadError{Kind: types.SourceDOCX, Message: "failed to parse document body", Cause: err}
	}
	return &Document{Text: CleanText(text), PageCount: pages, Kind: types.SourceDOCX}, nil
}

// docxText walks WordprocessingML, emitting run text, tabs and breaks, with
// one line per paragraph. Explicit page breaks are counted.
func docxText(r io.Reader) (string, int, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	pages := 1
	inRun, inText := false, false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				// tab stops in paragraph properties are not content
				if inRun {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if attr(t, "type") == "page" {
					pages++
				}
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), pages, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
