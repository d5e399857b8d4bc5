package ocr

import (
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Options are the recognized pdf_to_markdown query parameters.
// A nil or empty field is omitted and the provider default applies.
type Options struct {
	PageStart         *int   `validate:"omitempty,min=0"`
	PageCount         *int   `validate:"omitempty,gt=0"`
	TableFlavor       string // "md", "html", "none"
	ParseMode         string // "scan", "auto", ...
	PageDetails       *int   `validate:"omitempty,oneof=0 1"`
	MarkdownDetails   *int   `validate:"omitempty,oneof=0 1"`
	ApplyDocumentTree *int   `validate:"omitempty,oneof=0 1"`
	DPI               *int   `validate:"omitempty,gt=0"`
	PDFPassword       string
	GetImage          string // "none", "page", "objects", "both"
}

// Int returns a pointer to v, for optional option fields.
func Int(v int) *int { return &v }

// DefaultOptions are the options used for interactive uploads.
func DefaultOptions() Options {
	return Options{
		PageStart:         Int(0),
		PageCount:         Int(1000),
		TableFlavor:       "md",
		ParseMode:         "scan",
		PageDetails:       Int(0),
		MarkdownDetails:   Int(1),
		ApplyDocumentTree: Int(1),
		DPI:               Int(144),
	}
}

// Validate checks numeric ranges and flag values.
func (o Options) Validate() error {
	return validate.Struct(o)
}

// Values flattens the options into query parameters.
func (o Options) Values() url.Values {
	v := url.Values{}
	setInt := func(key string, p *int) {
		if p != nil {
			v.Set(key, strconv.Itoa(*p))
		}
	}
	setString := func(key, s string) {
		if s != "" {
			v.Set(key, s)
		}
	}
	setInt("page_start", o.PageStart)
	setInt("page_count", o.PageCount)
	setString("table_flavor", o.TableFlavor)
	setString("parse_mode", o.ParseMode)
	setInt("page_details", o.PageDetails)
	setInt("markdown_details", o.MarkdownDetails)
	setInt("apply_document_tree", o.ApplyDocumentTree)
	setInt("dpi", o.DPI)
	setString("pdf_pwd", o.PDFPassword)
	setString("get_image", o.GetImage)
	return v
}
