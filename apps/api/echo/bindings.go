package echoapi

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core/enrolment"
)

const pngDataURLPrefix = "data:image/png;base64,"

type (
	// fieldsRequest sets top-level answers of the current step, in the given order.
	fieldsRequest struct {
		Fields []fieldValue `json:"fields"`
	}

	fieldValue struct {
		Field string      `json:"field"`
		Value interface{} `json:"value"`
	}

	subjectAreasRequest struct {
		Areas []string `json:"areas"`
	}

	subFieldsRequest struct {
		Area   string       `json:"area"`
		Fields []fieldValue `json:"fields"`
	}

	// signatureRequest carries the drawing surface as a PNG data URL. An empty image clears it.
	signatureRequest struct {
		Image string `json:"image"`
	}

	sessionResponse struct {
		Token string             `json:"token"`
		View  enrolment.StepView `json:"view"`
	}
)

func (req fieldsRequest) events() []enrolment.Event {
	evs := make([]enrolment.Event, 0, len(req.Fields))
	for _, f := range req.Fields {
		evs = append(evs, enrolment.FieldChanged{Field: enrolment.Field(f.Field), Value: f.Value})
	}
	return evs
}

func (req subjectAreasRequest) event() enrolment.Event {
	areas := make([]enrolment.SubjectArea, 0, len(req.Areas))
	for _, a := range req.Areas {
		areas = append(areas, enrolment.SubjectArea(a))
	}
	return enrolment.SubjectAreasChanged{Areas: areas}
}

func (req subFieldsRequest) events() []enrolment.Event {
	evs := make([]enrolment.Event, 0, len(req.Fields))
	for _, f := range req.Fields {
		evs = append(evs, enrolment.SubFieldChanged{Area: enrolment.SubjectArea(req.Area), Key: f.Field, Value: f.Value})
	}
	return evs
}

func (req signatureRequest) event() (enrolment.Event, error) {
	if strings.TrimSpace(req.Image) == "" {
		return enrolment.SignatureCaptured{}, nil
	}
	img, err := decodeDataURL(req.Image)
	if err != nil {
		return nil, err
	}
	return enrolment.SignatureCaptured{Image: img}, nil
}

func decodeDataURL(s string) (image.Image, error) {
	if !strings.HasPrefix(s, pngDataURLPrefix) {
		return nil, errInvalidDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, pngDataURLPrefix))
	if err != nil {
		return nil, errInvalidDataURL
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errInvalidDataURL
	}
	return img, nil
}

// bindUploads reads every file of the multipart "files" field.
func bindUploads(ctx echo.Context) ([]enrolment.Upload, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "expected a multipart form").SetInternal(err)
	}
	headers := form.File["files"]
	uploads := make([]enrolment.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) (enrolment.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return enrolment.Upload{}, errors.Wrapf(err, "opening %s", fh.Filename)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return enrolment.Upload{}, errors.Wrapf(err, "reading %s", fh.Filename)
	}
	ct := fh.Header.Get(echo.HeaderContentType)
	if ct == "" {
		ct = "application/octet-stream"
	}
	return enrolment.Upload{Filename: fh.Filename, ContentType: ct, Content: content}, nil
}
