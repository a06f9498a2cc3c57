// Package annotation - reads and writes per-image bounding box annotation files.
//
// Each file is a small XML document in the Pascal VOC layout:
//
//	<annotation>
//		<filename>0001</filename>
//		<size>
//			<width>640</width>
//			<height>480</height>
//		</size>
//		<object>
//			<bndbox>
//				<xmin>10</xmin>
//				<ymin>20</ymin>
//				<xmax>110</xmax>
//				<ymax>220</ymax>
//			</bndbox>
//		</object>
//	</annotation>
package annotation

import (
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/bbox-eval/common"
)

// Size is the nominal image size recorded next to the box.
type Size struct {
	Width  int
	Height int
}

// Document is a decoded annotation file.
type Document struct {
	// Filename is the identifier recorded inside the file.
	Filename string
	// Size is the recorded image size. Zero when the file carries none.
	Size Size
	// Box is the first object's bounding box.
	Box common.BoundingBox
}

type xmlAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename"`
	Size     xmlSize     `xml:"size"`
	Objects  []xmlObject `xml:"object"`
}

type xmlSize struct {
	Width  string `xml:"width"`
	Height string `xml:"height"`
}

type xmlObject struct {
	BndBox *xmlBndBox `xml:"bndbox"`
}

type xmlBndBox struct {
	XMin string `xml:"xmin"`
	YMin string `xml:"ymin"`
	XMax string `xml:"xmax"`
	YMax string `xml:"ymax"`
}

// ReadDocument decodes one annotation document.
//
// Coordinates are decimal numbers truncated toward zero ("12.7" reads as 12). Only the
// first object is used. A missing or non-numeric coordinate is an error.
func ReadDocument(r io.Reader) (*Document, error) {
	var raw xmlAnnotation
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &fieldError{kind: ErrMalformedDocument, err: err}
	}

	if len(raw.Objects) == 0 || raw.Objects[0].BndBox == nil {
		return nil, &fieldError{field: "object.bndbox", err: ErrMissingField}
	}
	bnd := raw.Objects[0].BndBox

	var coords [4]int
	for i, f := range []struct {
		name  string
		value string
	}{
		{"xmin", bnd.XMin},
		{"ymin", bnd.YMin},
		{"xmax", bnd.XMax},
		{"ymax", bnd.YMax},
	} {
		v, err := parseCoordinate(f.value)
		if err != nil {
			return nil, &fieldError{field: "object.bndbox." + f.name, err: err}
		}
		coords[i] = v
	}

	doc := &Document{
		Filename: strings.TrimSpace(raw.Filename),
		Box:      common.NewBoundingBox(coords[0], coords[1], coords[2], coords[3]),
	}

	// Size is informational; a missing size is tolerated, a garbled one is not.
	for _, f := range []struct {
		name  string
		value string
		dst   *int
	}{
		{"size.width", raw.Size.Width, &doc.Size.Width},
		{"size.height", raw.Size.Height, &doc.Size.Height},
	} {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		v, err := parseCoordinate(f.value)
		if err != nil {
			return nil, &fieldError{field: f.name, err: err}
		}
		*f.dst = v
	}

	return doc, nil
}

// WriteDocument encodes doc with tab indentation and an XML header.
func WriteDocument(w io.Writer, doc *Document) error {
	raw := xmlAnnotation{
		Filename: doc.Filename,
		Size: xmlSize{
			Width:  strconv.Itoa(doc.Size.Width),
			Height: strconv.Itoa(doc.Size.Height),
		},
		Objects: []xmlObject{{
			BndBox: &xmlBndBox{
				XMin: strconv.Itoa(doc.Box.XMin),
				YMin: strconv.Itoa(doc.Box.YMin),
				XMax: strconv.Itoa(doc.Box.XMax),
				YMax: strconv.Itoa(doc.Box.YMax),
			},
		}},
	}

	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>`+"\n"); err != nil {
		return errors.Wrap(err, "write header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(raw); err != nil {
		return errors.Wrap(err, "encode annotation")
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, "write trailer")
	}
	return nil
}

func parseCoordinate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingField
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrInvalidCoordinate, "%q", s)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, errors.Wrapf(ErrInvalidCoordinate, "%q out of range", s)
	}
	return int(math.Trunc(v)), nil
}
