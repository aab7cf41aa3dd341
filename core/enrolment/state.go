package enrolment

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/aspirecraft/enrolment/core"
)

// accepted date layouts, tried in order
var dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006", time.RFC3339}

type (
	// Upload is an optional supporting file.
	Upload struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
		Content     []byte `json:"-"`
	}

	// Answers maps sub-field keys to values.
	Answers map[string]interface{}

	// State is the wizard record of one session. It is owned by exactly one session.
	State struct {
		ID             string
		Step           Step
		Values         map[Field]interface{}
		SubjectAreas   []SubjectArea
		SubForms       map[SubjectArea]Answers // drafts, kept across deselection
		Answers        map[SubjectArea]Answers // finalized on the last successful services advance
		Signature      *image.RGBA
		SubmissionDone bool
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}
)

// NewState returns a state at the welcome step with every field at its default.
func NewState(id string) *State {
	now := nowFunc().UTC()
	return &State{
		ID:        id,
		Step:      StepWelcome,
		Values:    defaultValues(),
		SubForms:  make(map[SubjectArea]Answers),
		Answers:   make(map[SubjectArea]Answers),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (st *State) Text(f Field) string {
	s, _ := st.Values[f].(string)
	return s
}

func (st *State) Bool(f Field) bool {
	b, _ := st.Values[f].(bool)
	return b
}

// Date returns the date value of f and whether it is set.
func (st *State) Date(f Field) (time.Time, bool) {
	d, _ := st.Values[f].(time.Time)
	return d, !d.IsZero()
}

func (st *State) Uploads(f Field) []Upload {
	u, _ := st.Values[f].([]Upload)
	return u
}

// AllUploads returns the files of every upload step.
func (st *State) AllUploads() []Upload {
	all := append([]Upload(nil), st.Uploads(FieldCVPortfolio)...)
	return append(all, st.Uploads(FieldSupportingDocuments)...)
}

// HasSubjectArea reports whether area is selected.
func (st *State) HasSubjectArea(area SubjectArea) bool {
	for _, a := range st.SubjectAreas {
		if a == area {
			return true
		}
	}
	return false
}

// AddUploads appends files to an upload field, skipping file names already present.
func (st *State) AddUploads(f Field, files []Upload) {
	existing := st.Uploads(f)
	seen := make(map[string]bool, len(existing))
	for _, u := range existing {
		seen[u.Filename] = true
	}
	for _, u := range files {
		if u.Filename == "" || seen[u.Filename] {
			continue
		}
		seen[u.Filename] = true
		existing = append(existing, u)
	}
	st.Values[f] = existing
}

// coerce converts a raw input value to the Go type of kind.
func coerce(kind Kind, value interface{}) (interface{}, error) {
	switch kind {
	case KindText, KindChoice:
		switch v := value.(type) {
		case string:
			return v, nil
		case nil:
			return "", nil
		}
	case KindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case KindDate:
		switch v := value.(type) {
		case time.Time:
			return dateOnly(v), nil
		case nil:
			return time.Time{}, nil
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return time.Time{}, nil
			}
			for _, layout := range dateLayouts {
				if d, err := time.Parse(layout, v); err == nil {
					return dateOnly(d), nil
				}
			}
			return nil, fmt.Errorf("%q is not a valid date", v)
		}
	case KindMultiChoice:
		switch v := value.(type) {
		case []string:
			return append([]string{}, v...), nil
		case nil:
			return []string{}, nil
		case []interface{}:
			list := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected a list of strings, got %T", item)
				}
				list = append(list, s)
			}
			return list, nil
		}
	case KindUploads:
		if u, ok := value.([]Upload); ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("expected a %s value, got %T", kind, value)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (a Answers) Text(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a Answers) Strings(key string) []string {
	s, _ := a[key].([]string)
	return s
}

// Clone copies a, including list values.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		if list, ok := v.([]string); ok {
			v = append([]string{}, list...)
		}
		out[k] = v
	}
	return out
}

func fieldErr(f Field, msg string) core.FieldError {
	return core.FieldError{Field: string(f), Error: msg}
}
