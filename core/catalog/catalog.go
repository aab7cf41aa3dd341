// Package catalog loads the read-only reference data shared by every enrolment session:
// countries with their dialing codes, nationalities, subject areas and the CPD course catalog.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/xuri/excelize/v2"
)

// reference files, relative to the resources root
const (
	CountriesFile     = "world-countries.json"
	NationalitiesFile = "nationalities.json"
	SubjectAreasFile  = "subject_area_list_v2.txt"
	CoursesXLSXFile   = "CPD_course_list.xlsx"
	CoursesCSVFile    = "CPD_course_list.csv"

	categoryColumn = "Category"
	courseColumn   = "Course Title"
)

type Country struct {
	Name        string `json:"name"`
	DialingCode string `json:"dialing_code"`
}

// Catalog is immutable once loaded and safe for concurrent reads.
type Catalog struct {
	dialingCodes  map[string]string
	countryNames  []string
	nationalities []string
	subjectAreas  []string
	courses       map[string][]string
	categories    []string
}

// Load reads every reference file from fsys. The course catalog is read from the
// spreadsheet when present, from the CSV export otherwise.
func Load(fsys fs.FS) (*Catalog, error) {
	cat := new(Catalog)
	if err := cat.loadCountries(fsys); err != nil {
		return nil, err
	}
	if err := cat.loadNationalities(fsys); err != nil {
		return nil, err
	}
	if err := cat.loadSubjectAreas(fsys); err != nil {
		return nil, err
	}
	if err := cat.loadCourses(fsys); err != nil {
		return nil, err
	}
	return cat, nil
}

func (cat *Catalog) loadCountries(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, CountriesFile)
	if err != nil {
		return errors.Wrap(err, "reading countries")
	}
	var countries []Country
	if err := json.Unmarshal(data, &countries); err != nil {
		return errors.Wrapf(err, "decoding %s", CountriesFile)
	}

	cat.dialingCodes = make(map[string]string, len(countries))
	for _, c := range countries {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if _, dup := cat.dialingCodes[name]; !dup {
			cat.countryNames = append(cat.countryNames, name)
		}
		cat.dialingCodes[name] = strings.TrimSpace(c.DialingCode)
	}
	sort.Strings(cat.countryNames)
	return nil
}

func (cat *Catalog) loadNationalities(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, NationalitiesFile)
	if err != nil {
		return errors.Wrap(err, "reading nationalities")
	}
	if err := json.Unmarshal(data, &cat.nationalities); err != nil {
		return errors.Wrapf(err, "decoding %s", NationalitiesFile)
	}
	return nil
}

func (cat *Catalog) loadSubjectAreas(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, SubjectAreasFile)
	if err != nil {
		return errors.Wrap(err, "reading subject areas")
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if area := strings.TrimSpace(sc.Text()); area != "" {
			cat.subjectAreas = append(cat.subjectAreas, area)
		}
	}
	return errors.Wrapf(sc.Err(), "scanning %s", SubjectAreasFile)
}

func (cat *Catalog) loadCourses(fsys fs.FS) error {
	var (
		rows [][]string
		err  error
	)
	if f, openErr := fsys.Open(CoursesXLSXFile); openErr == nil {
		rows, err = readSpreadsheet(f)
		_ = f.Close()
	} else if errors.Is(openErr, fs.ErrNotExist) {
		var f fs.File
		if f, err = fsys.Open(CoursesCSVFile); err != nil {
			return errors.Wrap(err, "reading course catalog")
		}
		rows, err = csv.NewReader(f).ReadAll()
		_ = f.Close()
	} else {
		err = openErr
	}
	if err != nil {
		return errors.Wrap(err, "reading course catalog")
	}

	cat.courses, err = groupCourses(rows)
	if err != nil {
		return err
	}
	for category := range cat.courses {
		cat.categories = append(cat.categories, category)
	}
	sort.Strings(cat.categories)
	return nil
}

// readSpreadsheet returns the rows of the first sheet.
func readSpreadsheet(r io.Reader) ([][]string, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows(xl.GetSheetName(0))
	return rows, errors.Wrap(err, "reading first sheet")
}

// groupCourses maps each category to its sorted, de-duplicated course titles.
// The first row is the header; columns are located by name.
func groupCourses(rows [][]string) (map[string][]string, error) {
	if len(rows) == 0 {
		return nil, errors.New("course catalog is empty")
	}
	catCol, courseCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case categoryColumn:
			catCol = i
		case courseColumn:
			courseCol = i
		}
	}
	if catCol < 0 || courseCol < 0 {
		return nil, errors.Errorf("course catalog needs %q and %q columns", categoryColumn, courseColumn)
	}

	seen := make(map[string]map[string]bool)
	for _, row := range rows[1:] {
		if catCol >= len(row) || courseCol >= len(row) {
			continue
		}
		category, course := strings.TrimSpace(row[catCol]), strings.TrimSpace(row[courseCol])
		if category == "" || course == "" {
			continue
		}
		if seen[category] == nil {
			seen[category] = make(map[string]bool)
		}
		seen[category][course] = true
	}

	courses := make(map[string][]string, len(seen))
	for category, titles := range seen {
		list := make([]string, 0, len(titles))
		for t := range titles {
			list = append(list, t)
		}
		sort.Strings(list)
		courses[category] = list
	}
	return courses, nil
}

// CountryNames returns the sorted country names.
func (cat *Catalog) CountryNames() []string { return cat.countryNames }

// DialingCode returns the dialing code of the named country.
func (cat *Catalog) DialingCode(country string) (string, bool) {
	code, ok := cat.dialingCodes[country]
	return code, ok
}

// Nationalities are kept in file order.
func (cat *Catalog) Nationalities() []string { return cat.nationalities }

// SubjectAreas are kept in file order.
func (cat *Catalog) SubjectAreas() []string { return cat.subjectAreas }

// SortedSubjectAreas is the order the areas are offered in.
func (cat *Catalog) SortedSubjectAreas() []string {
	areas := append([]string(nil), cat.subjectAreas...)
	sort.Strings(areas)
	return areas
}

func (cat *Catalog) HasSubjectArea(area string) bool { return contains(cat.subjectAreas, area) }
func (cat *Catalog) HasCountry(name string) bool    { _, ok := cat.dialingCodes[name]; return ok }
func (cat *Catalog) HasNationality(n string) bool   { return contains(cat.nationalities, n) }

// Categories returns the sorted course categories.
func (cat *Catalog) Categories() []string { return cat.categories }

// Courses returns the sorted course titles of a category.
func (cat *Catalog) Courses(category string) []string { return cat.courses[category] }

// Suggest returns up to 3 options close to value, best first.
func Suggest(value string, options []string) []string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	type match struct {
		option string
		score  float64
	}
	var matches []match
	m := difflib.NewMatcher(nil, nil)
	m.SetSeq2(letters(value))
	for _, o := range options {
		m.SetSeq1(letters(o))
		if score := m.Ratio(); score >= suggestCutoff {
			matches = append(matches, match{o, score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	out := make([]string, 0, 3)
	for i := 0; i < len(matches) && i < 3; i++ {
		out = append(out, matches[i].option)
	}
	return out
}

const suggestCutoff = 0.6

func letters(s string) []string {
	s = strings.ToLower(s)
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
