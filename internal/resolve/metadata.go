package resolve

import (
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/spf13/afero"

	"datesort/internal/datetime"
	"datesort/internal/logging"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Decoder reads the raw capture date-time string embedded in a file.
type Decoder interface {
	RawDateTime(path string) (string, bool)
}

// captureFields are consulted in order; the first present one is used.
var captureFields = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTimeDigitized,
	exif.DateTime,
}

// ExifDecoder decodes EXIF containers (JPEG APP1, TIFF, raw EXIF) with goexif.
type ExifDecoder struct {
	fs afero.Fs
}

// NewExifDecoder returns a decoder reading files from fs.
func NewExifDecoder(fs afero.Fs) *ExifDecoder {
	return &ExifDecoder{fs: fs}
}

// RawDateTime returns the first non-empty capture date field. Missing,
// unreadable, or corrupt containers yield no result, as do decoder panics.
func (d *ExifDecoder) RawDateTime(path string) (raw string, ok bool) {
	logger := logging.GetLogger("metadata")
	defer func() {
		if r := recover(); r != nil {
			logger.Debug().Interface("panic", r).Str("file", path).Msg("EXIF decoder fault")
			raw, ok = "", false
		}
	}()

	f, err := d.fs.Open(path)
	if err != nil {
		logger.Debug().Err(err).Str("file", path).Msg("Cannot open file for metadata")
		return "", false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// Many files have no EXIF data, which is okay.
		logger.Trace().Err(err).Str("file", path).Msg("No EXIF container")
		return "", false
	}

	for _, field := range captureFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil || strings.TrimSpace(strings.Trim(val, "\x00")) == "" {
			continue
		}
		logger.Trace().Str("file", path).Str("field", string(field)).Str("value", val).Msg("Found capture date field")
		return val, true
	}
	return "", false
}

// Metadata resolves dates from embedded metadata, parsed strictly.
type Metadata struct {
	decoder Decoder
	parser  *datetime.Parser
}

// NewMetadata returns a metadata resolver.
func NewMetadata(decoder Decoder, parser *datetime.Parser) *Metadata {
	return &Metadata{decoder: decoder, parser: parser}
}

func (m *Metadata) Name() string { return "metadata" }

func (m *Metadata) Resolve(path string) (time.Time, bool) {
	raw, ok := m.decoder.RawDateTime(path)
	if !ok {
		return time.Time{}, false
	}
	return m.parser.Parse(raw, true)
}
