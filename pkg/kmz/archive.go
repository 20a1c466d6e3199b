package kmz

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"
)

import (
	"area2waypoint/pkg/wpml"
)

import (
	"github.com/beevik/etree"
	"github.com/klauspost/compress/zip"
)

const (
	TemplateName = "wpmz/template.kml"
	WaylinesName = "wpmz/waylines.wpml"
)

var (
	ErrArchiveCorrupt  = errors.New("archive corrupt")
	ErrMissingDocument = errors.New("missing document")
)

// ReadWaylines opens a mission KMZ and decodes its waylines document.
func ReadWaylines(fn string) (*etree.Document, error) {
	zr, err := zip.OpenReader(fn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", fn, ErrArchiveCorrupt, err)
	}
	defer zr.Close()
	return read_waylines(&zr.Reader, fn)
}

func ReadWaylinesFrom(r io.ReaderAt, size int64) (*etree.Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveCorrupt, err)
	}
	return read_waylines(zr, "kmz")
}

func read_waylines(zr *zip.Reader, fn string) (*etree.Document, error) {
	for _, f := range zr.File {
		if path.Clean(f.Name) != WaylinesName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", fn, ErrArchiveCorrupt, err)
		}
		dat, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", fn, ErrArchiveCorrupt, err)
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(dat); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", fn, wpml.ErrMalformedMission, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%s: %w: no %s", fn, ErrMissingDocument, WaylinesName)
}

// Write creates the waypoint KMZ at fn, creating its directory if needed.
func Write(fn string, om *wpml.OutputMission, now time.Time) error {
	if dir := filepath.Dir(fn); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	fh, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := WriteTo(fh, om, now); err != nil {
		fh.Close()
		os.Remove(fn)
		return err
	}
	return fh.Close()
}

func WriteTo(w io.Writer, om *wpml.OutputMission, now time.Time) error {
	zw := zip.NewWriter(w)
	docs := []struct {
		name string
		doc  *etree.Document
	}{
		{TemplateName, EncodeTemplate(om, now)},
		{WaylinesName, EncodeWaylines(om)},
	}
	for _, d := range docs {
		d.doc.Indent(2)
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: d.name, Method: zip.Deflate, Modified: now})
		if err != nil {
			return err
		}
		if _, err := d.doc.WriteTo(fw); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return zw.Close()
}
