package types

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field names a descriptive attribute of a procedure. The set is closed:
// anything outside AllFields is ignored on input.
type Field string

const (
	FieldName               Field = "name"
	FieldCode               Field = "code"
	FieldDeadline           Field = "deadline"
	FieldLocation           Field = "location"
	FieldMethod             Field = "method"
	FieldLegalBasis         Field = "legal_basis"
	FieldFee                Field = "fee"
	FieldResult             Field = "result"
	FieldSubjects           Field = "subjects"
	FieldImplementingAgency Field = "implementing_agency"
)

// AllFields lists the allow-list in storage column order.
var AllFields = []Field{
	FieldName,
	FieldCode,
	FieldDeadline,
	FieldLocation,
	FieldMethod,
	FieldLegalBasis,
	FieldFee,
	FieldResult,
	FieldSubjects,
	FieldImplementingAgency,
}

// fieldLimits holds maximum lengths in runes. Zero means unbounded.
var fieldLimits = map[Field]int{
	FieldName:               500,
	FieldCode:               100,
	FieldDeadline:           500,
	FieldLocation:           500,
	FieldMethod:             0,
	FieldLegalBasis:         0,
	FieldFee:                500,
	FieldResult:             500,
	FieldSubjects:           500,
	FieldImplementingAgency: 500,
}

// ParseField resolves a raw key against the allow-list.
func ParseField(key string) (Field, bool) {
	f := Field(strings.TrimSpace(key))
	if _, ok := fieldLimits[f]; ok {
		return f, true
	}
	return "", false
}

// MaxLength returns the rune limit for f, or 0 when unbounded.
func (f Field) MaxLength() int {
	return fieldLimits[f]
}

// Fields is the typed field dictionary of a procedure. An empty string
// means the field is absent.
type Fields struct {
	Name               string `json:"name"`
	Code               string `json:"code,omitempty"`
	Deadline           string `json:"deadline,omitempty"`
	Location           string `json:"location,omitempty"`
	Method             string `json:"method,omitempty"`
	LegalBasis         string `json:"legal_basis,omitempty"`
	Fee                string `json:"fee,omitempty"`
	Result             string `json:"result,omitempty"`
	Subjects           string `json:"subjects,omitempty"`
	ImplementingAgency string `json:"implementing_agency,omitempty"`
}

// FieldsFromMap builds Fields from a loosely typed row. Unknown keys are
// dropped. When several keys name the same field the exact key wins, then
// the first in sorted order.
func FieldsFromMap(m map[string]string) Fields {
	var f Fields
	from := make(map[Field]string, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		field, ok := ParseField(k)
		if !ok {
			continue
		}
		if prev, dup := from[field]; dup && (prev == string(field) || k != string(field)) {
			continue
		}
		from[field] = k
		f.Set(field, m[k])
	}
	return f.Normalize()
}

func (f *Fields) ptr(field Field) *string {
	switch field {
	case FieldName:
		return &f.Name
	case FieldCode:
		return &f.Code
	case FieldDeadline:
		return &f.Deadline
	case FieldLocation:
		return &f.Location
	case FieldMethod:
		return &f.Method
	case FieldLegalBasis:
		return &f.LegalBasis
	case FieldFee:
		return &f.Fee
	case FieldResult:
		return &f.Result
	case FieldSubjects:
		return &f.Subjects
	case FieldImplementingAgency:
		return &f.ImplementingAgency
	}
	return nil
}

// Get returns the value of field, or "" for unknown fields.
func (f Fields) Get(field Field) string {
	if p := f.ptr(field); p != nil {
		return *p
	}
	return ""
}

// Set assigns field. Unknown fields are ignored.
func (f *Fields) Set(field Field, value string) {
	if p := f.ptr(field); p != nil {
		*p = value
	}
}

// Normalize returns a copy with every value trimmed of surrounding whitespace.
func (f Fields) Normalize() Fields {
	out := f
	for _, field := range AllFields {
		out.Set(field, strings.TrimSpace(out.Get(field)))
	}
	return out
}

// Apply returns f with the patch applied. A key present in the patch
// overwrites the current value, including with "" to clear it.
func (f Fields) Apply(p Patch) Fields {
	out := f
	for field, v := range p {
		out.Set(field, v)
	}
	return out.Normalize()
}

// Validate checks required fields, control characters and length limits.
func (f Fields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return Invalid("%s is required", FieldName)
	}
	for _, field := range AllFields {
		if strings.IndexFunc(f.Get(field), isDisallowedControl) >= 0 {
			return Invalid("%s contains control characters", field)
		}
		limit := field.MaxLength()
		if limit == 0 {
			continue
		}
		if n := utf8.RuneCountInString(f.Get(field)); n > limit {
			return Invalid("%s exceeds %d characters (got %d)", field, limit, n)
		}
	}
	return nil
}

// isDisallowedControl allows the whitespace controls multi-line text needs
func isDisallowedControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t'
}

// Patch carries the fields supplied to an update. Absent keys keep their value.
type Patch map[Field]string

// PatchFromMap builds a Patch, rejecting keys outside the allow-list.
func PatchFromMap(m map[string]string) (Patch, error) {
	p := make(Patch, len(m))
	for k, v := range m {
		field, ok := ParseField(k)
		if !ok {
			return nil, Invalid("unknown field %q", k)
		}
		p[field] = v
	}
	return p, nil
}

// FormAttachment references a downloadable form for a procedure.
type FormAttachment struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Procedure is one administrative procedure owned by a tenant.
type Procedure struct {
	ID       int64 `json:"id"`
	TenantID int64 `json:"search_space_id"`
	Fields

	FormAttachments []FormAttachment `json:"form_attachments,omitempty"`

	// Derived from Fields on every write
	Content     string    `json:"content,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Embedding   []float32 `json:"-"`

	CreatedBy *uuid.UUID `json:"created_by_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Populated only by reads that load chunks
	Chunks []Chunk `json:"chunks,omitempty"`
}

// String identifies the procedure in logs.
func (p *Procedure) String() string {
	return fmt.Sprintf("procedure %d (tenant %d)", p.ID, p.TenantID)
}

// ListFilter narrows a procedure listing.
type ListFilter struct {
	Name     string
	Code     string
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize applies defaults and drops placeholder filter values sent by web clients.
func (lf ListFilter) Normalize() (ListFilter, error) {
	out := lf
	out.Name = cleanFilter(out.Name)
	out.Code = cleanFilter(out.Code)
	if out.Page < 0 {
		return out, Invalid("page must be >= 0")
	}
	if out.PageSize == 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize < 1 || out.PageSize > MaxPageSize {
		return out, Invalid("page_size must be between 1 and %d", MaxPageSize)
	}
	return out, nil
}

func cleanFilter(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "undefined", "null":
		return ""
	}
	return v
}

// Page is one page of a listing.
type Page struct {
	Items    []*Procedure `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}
