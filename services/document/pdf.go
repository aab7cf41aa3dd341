// Package docsvc renders submission documents.
package docsvc

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/enrolment"
)

const (
	mmPerInch   = 25.4
	lineHeight  = 6.0
	fontFamily  = "Helvetica"
	signatureID = "signature"
)

// heading font sizes, by nesting level
var headingSizes = []float64{16, 13, 11}

type PDFRenderer struct {
	author string
}

var _ enrolment.Renderer = (*PDFRenderer)(nil)

func NewPDFRenderer(conf *core.Config) *PDFRenderer {
	return &PDFRenderer{author: conf.AppName}
}

// Render lays the document out on A4 pages. Text outside the cp1252 code page is replaced.
func (r *PDFRenderer) Render(doc *enrolment.Document) (core.Attachment, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(r.author, true)
	pdf.SetCreator(r.author, true)
	pdf.SetCreationDate(doc.SubmittedAt)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 20)
	pdf.CellFormat(0, 12, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, s := range doc.Sections {
		writeSection(pdf, tr, s, 0)
		if s.Heading == enrolment.SectionSignature && len(doc.Signature) > 0 {
			drawSignature(pdf, doc.Signature)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return core.Attachment{}, errors.Wrap(err, "writing pdf")
	}
	return core.Attachment{
		Content:     buf.Bytes(),
		ContentType: "application/pdf",
		Filename:    doc.Filename(".pdf"),
	}, nil
}

func writeSection(pdf *fpdf.Fpdf, tr func(string) string, s enrolment.Section, level int) {
	size := headingSizes[len(headingSizes)-1]
	if level < len(headingSizes) {
		size = headingSizes[level]
	}
	pdf.Ln(2)
	pdf.SetFont(fontFamily, "B", size)
	pdf.MultiCell(0, size/2, tr(s.Heading), "", "L", false)
	pdf.Ln(1)

	for _, l := range s.Lines {
		if l.Label != "" {
			pdf.SetFont(fontFamily, "B", 10)
			pdf.CellFormat(pdf.GetStringWidth(tr(l.Label+": ")), lineHeight, tr(l.Label+": "), "", 0, "L", false, 0, "")
		}
		pdf.SetFont(fontFamily, "", 10)
		pdf.MultiCell(0, lineHeight, tr(l.Value), "", "L", false)
	}
	for _, sub := range s.Subsections {
		writeSection(pdf, tr, sub, level+1)
	}
}

func drawSignature(pdf *fpdf.Fpdf, img []byte) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(signatureID, opts, bytes.NewReader(img))
	pdf.ImageOptions(signatureID, pdf.GetX(), pdf.GetY(),
		enrolment.SignatureWidthInches*mmPerInch, enrolment.SignatureHeightInches*mmPerInch,
		true, opts, 0, "")
}
