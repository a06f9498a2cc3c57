package annotation

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/nvr-ai/bbox-eval/common"
)

const sampleDocument = `<?xml version="1.0" encoding="utf-8"?>
<annotation>
	<filename>0001</filename>
	<size>
		<width>640</width>
		<height>480</height>
	</size>
	<object>
		<bndbox>
			<xmin>10</xmin>
			<ymin>20.9</ymin>
			<xmax>110</xmax>
			<ymax>220</ymax>
		</bndbox>
	</object>
	<object>
		<bndbox>
			<xmin>1</xmin>
			<ymin>1</ymin>
			<xmax>2</xmax>
			<ymax>2</ymax>
		</bndbox>
	</object>
</annotation>
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadDocument(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "0001", doc.Filename)
	assert.Equal(t, Size{Width: 640, Height: 480}, doc.Size)
	// First object wins; 20.9 is truncated to 20.
	assert.Equal(t, common.NewBoundingBox(10, 20, 110, 220), doc.Box)
}

func TestReadDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
		want  error
	}{
		{
			name: "not xml",
			doc:  "xmin=1",
			want: ErrMalformedDocument,
		},
		{
			name: "wrong root",
			doc:  "<labels><object/></labels>",
			want: ErrMalformedDocument,
		},
		{
			name:  "no object",
			doc:   "<annotation><filename>a</filename></annotation>",
			field: "object.bndbox",
			want:  ErrMissingField,
		},
		{
			name:  "missing coordinate",
			doc:   "<annotation><object><bndbox><xmin>1</xmin><ymin>1</ymin><xmax>2</xmax></bndbox></object></annotation>",
			field: "object.bndbox.ymax",
			want:  ErrMissingField,
		},
		{
			name:  "non numeric coordinate",
			doc:   "<annotation><object><bndbox><xmin>one</xmin><ymin>1</ymin><xmax>2</xmax><ymax>2</ymax></bndbox></object></annotation>",
			field: "object.bndbox.xmin",
			want:  ErrInvalidCoordinate,
		},
		{
			name:  "garbled size",
			doc:   "<annotation><size><width>wide</width></size><object><bndbox><xmin>1</xmin><ymin>1</ymin><xmax>2</xmax><ymax>2</ymax></bndbox></object></annotation>",
			field: "size.width",
			want:  ErrInvalidCoordinate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDocument(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			pe := newParseError("x.xml", err)
			assert.Equal(t, tt.field, pe.Field)
			assert.Equal(t, "x.xml", pe.Path)
		})
	}
}

func TestWriteDocument_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := &Document{Filename: "0007", Size: Size{Width: 1920, Height: 1080}, Box: common.NewBoundingBox(5, 6, 7, 8)}
	require.NoError(t, WriteDocument(&buf, in))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, out, "\t<filename>0007</filename>")
	assert.Contains(t, out, "\t\t\t<xmin>5</xmin>")

	doc, err := ReadDocument(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, doc)
}

func TestWriteBox(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")

	path, err := WriteBox(dir, "0042", Size{Width: 640, Height: 480}, common.NewBoundingBox(1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0042.xml"), path)

	box, err := LoadBox(path)
	require.NoError(t, err)
	assert.Equal(t, common.NewBoundingBox(1, 2, 3, 4), box)

	_, err = WriteBox(dir, "../escape", Size{}, common.BoundingBox{})
	assert.Error(t, err)
	_, err = WriteBox(dir, "", Size{}, common.BoundingBox{})
	assert.Error(t, err)
}

func TestLoadBoxes(t *testing.T) {
	dir := t.TempDir()
	for id, b := range map[string]common.BoundingBox{
		"0001": common.NewBoundingBox(0, 0, 10, 10),
		"0002": common.NewBoundingBox(5, 5, 15, 15),
	} {
		_, err := WriteBox(dir, id, Size{Width: 100, Height: 100}, b)
		require.NoError(t, err)
	}
	writeFile(t, dir, "0003.XML", strings.Replace(sampleDocument, "0001", "0003", 1))
	writeFile(t, dir, "0004.jpg", "not an annotation")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.xml"), 0o755))

	boxes, err := LoadBoxes(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"0001", "0002", "0003"}, boxes.IDs())
	box, ok := boxes.Lookup("0002")
	require.True(t, ok)
	assert.Equal(t, common.NewBoundingBox(5, 5, 15, 15), box)
}

func TestLoadBoxes_Policies(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteBox(dir, "0001", Size{}, common.NewBoundingBox(0, 0, 10, 10))
	require.NoError(t, err)
	writeFile(t, dir, "0002.xml", "<annotation><object><bndbox><xmin>x</xmin></bndbox></object></annotation>")
	writeFile(t, dir, "0003.xml", "")

	t.Run("abort", func(t *testing.T) {
		boxes, err := LoadBoxes(dir, &LoaderConfig{Policy: LoadAbort})
		require.Error(t, err)
		assert.Nil(t, boxes)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, filepath.Join(dir, "0002.xml"), pe.Path)
		assert.Equal(t, "object.bndbox.xmin", pe.Field)
		assert.True(t, errors.Is(err, ErrInvalidCoordinate))
	})

	t.Run("skip", func(t *testing.T) {
		boxes, err := LoadBoxes(dir, &LoaderConfig{Policy: LoadSkip, Logger: zaptest.NewLogger(t)})
		require.Error(t, err)
		require.NotNil(t, boxes)
		assert.Equal(t, []string{"0001"}, boxes.IDs())

		errs := multierr.Errors(err)
		require.Len(t, errs, 2)
		for _, e := range errs {
			var pe *ParseError
			assert.True(t, errors.As(e, &pe))
		}
		assert.True(t, errors.Is(errs[1], ErrMalformedDocument))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := LoadBoxes(dir, &LoaderConfig{Policy: "ignore"})
		assert.True(t, errors.Is(err, ErrUnknownLoadPolicy))
	})
}

func TestLoadBoxes_Symlinks(t *testing.T) {
	store := t.TempDir()
	target, err := WriteBox(store, "0001", Size{Width: 64, Height: 64}, common.NewBoundingBox(1, 2, 3, 4))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(store, "folder"), 0o755))

	dir := t.TempDir()
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "0001.xml")))
	require.NoError(t, os.Symlink(filepath.Join(store, "folder"), filepath.Join(dir, "0002.xml")))

	boxes, err := LoadBoxes(dir, &LoaderConfig{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"0001"}, boxes.IDs())
	box, ok := boxes.Lookup("0001")
	require.True(t, ok)
	assert.Equal(t, common.NewBoundingBox(1, 2, 3, 4), box)

	t.Run("dangling link is reported", func(t *testing.T) {
		require.NoError(t, os.Symlink(filepath.Join(store, "gone.xml"), filepath.Join(dir, "0003.xml")))

		_, err := LoadBoxes(dir, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))

		boxes, err := LoadBoxes(dir, &LoaderConfig{Policy: LoadSkip})
		require.Error(t, err)
		assert.Equal(t, []string{"0001"}, boxes.IDs())
		assert.Len(t, multierr.Errors(err), 1)
	})
}

func TestReadDocument_KeepsDecoderCause(t *testing.T) {
	_, err := ReadDocument(strings.NewReader("<annotation><object>"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedDocument))

	var syntax *xml.SyntaxError
	require.True(t, errors.As(err, &syntax), "got %T: %v", err, err)

	dir := t.TempDir()
	writeFile(t, dir, "0001.xml", "<annotation><object>")
	_, err = LoadBoxes(dir, nil)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Empty(t, pe.Field)
	assert.True(t, errors.Is(err, ErrMalformedDocument))
	assert.True(t, errors.As(err, &syntax))
	assert.Contains(t, err.Error(), ErrMalformedDocument.Error())
}

func TestLoadBoxes_DuplicateIdentifier(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0001.XML", sampleDocument)
	writeFile(t, dir, "0001.xml", sampleDocument)

	_, err := LoadBoxes(dir, nil)
	assert.True(t, errors.Is(err, ErrDuplicateIdentifier))
}

func TestLoadBoxes_MissingDir(t *testing.T) {
	_, err := LoadBoxes(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "0001", Identifier("/data/labels/0001.xml"))
	assert.Equal(t, "img.v2", Identifier("img.v2.jpg"))
	assert.Equal(t, "noext", Identifier("noext"))
}

func TestParseLoadPolicy(t *testing.T) {
	p, err := ParseLoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LoadAbort, p)

	p, err = ParseLoadPolicy("SKIP")
	require.NoError(t, err)
	assert.Equal(t, LoadSkip, p)

	_, err = ParseLoadPolicy("retry")
	assert.True(t, errors.Is(err, ErrUnknownLoadPolicy))
}
