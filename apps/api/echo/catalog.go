package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aspirecraft/enrolment/core/catalog"
	"github.com/aspirecraft/enrolment/core/enrolment"
)

type (
	catalogResponse struct {
		Countries     []catalog.Country   `json:"countries"`
		Nationalities []string            `json:"nationalities"`
		SubjectAreas  []string            `json:"subjectAreas"`
		CPDCourses    map[string][]string `json:"cpdCourses"`
	}

	catalogApi struct {
		body catalogResponse
	}
)

func registerCatalogAPI(g *echo.Group, ctrl *enrolment.Controller) {
	api := catalogApi{body: newCatalogResponse(ctrl.Catalog())}
	g.GET("/catalog", api.retrieve)
}

func newCatalogResponse(cat *catalog.Catalog) catalogResponse {
	res := catalogResponse{
		Nationalities: cat.Nationalities(),
		SubjectAreas:  cat.SortedSubjectAreas(),
		CPDCourses:    make(map[string][]string, len(cat.Categories())),
	}
	for _, name := range cat.CountryNames() {
		code, _ := cat.DialingCode(name)
		res.Countries = append(res.Countries, catalog.Country{Name: name, DialingCode: code})
	}
	for _, c := range cat.Categories() {
		res.CPDCourses[c] = cat.Courses(c)
	}
	return res
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.body)
}
