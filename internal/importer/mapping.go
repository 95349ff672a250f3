package importer

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

// headerSynonyms maps a normalized header to a field. Vietnamese with and
// without diacritics and English spellings are accepted.
var headerSynonyms = map[string]types.Field{
	"tên thủ tục":            types.FieldName,
	"tên thủ tục hành chính": types.FieldName,
	"ten thu tuc":            types.FieldName,
	"ten thu tuc hanh chinh": types.FieldName,
	"mã thủ tục":             types.FieldCode,
	"ma thu tuc":             types.FieldCode,
	"mã":                     types.FieldCode,
	"thời hạn giải quyết":    types.FieldDeadline,
	"thoi han giai quyet":    types.FieldDeadline,
	"thời hạn":               types.FieldDeadline,
	"địa điểm thực hiện":     types.FieldLocation,
	"dia diem thuc hien":     types.FieldLocation,
	"nơi tiếp nhận":          types.FieldLocation,
	"cách thức thực hiện":    types.FieldMethod,
	"cach thuc thuc hien":    types.FieldMethod,
	"căn cứ pháp lý":         types.FieldLegalBasis,
	"can cu phap ly":         types.FieldLegalBasis,
	"lệ phí":                 types.FieldFee,
	"le phi":                 types.FieldFee,
	"phí":                    types.FieldFee,
	"kết quả":                types.FieldResult,
	"kết quả thực hiện":      types.FieldResult,
	"ket qua":                types.FieldResult,
	"đối tượng thực hiện":    types.FieldSubjects,
	"doi tuong thuc hien":    types.FieldSubjects,
	"đối tượng":              types.FieldSubjects,
	"cơ quan thực hiện":      types.FieldImplementingAgency,
	"co quan thuc hien":      types.FieldImplementingAgency,
	"cơ quan":                types.FieldImplementingAgency,

	"name":                types.FieldName,
	"code":                types.FieldCode,
	"deadline":            types.FieldDeadline,
	"location":            types.FieldLocation,
	"method":              types.FieldMethod,
	"legal_basis":         types.FieldLegalBasis,
	"legal basis":         types.FieldLegalBasis,
	"fee":                 types.FieldFee,
	"result":              types.FieldResult,
	"subjects":            types.FieldSubjects,
	"implementing_agency": types.FieldImplementingAgency,
	"implementing agency": types.FieldImplementingAgency,
	"agency":              types.FieldImplementingAgency,
}

// foldedSynonyms indexes headerSynonyms by their ASCII fold. Only folds
// that are unambiguous are kept.
var foldedSynonyms = func() map[string]types.Field {
	out := make(map[string]types.Field, len(headerSynonyms))
	ambiguous := make(map[string]bool)
	for k, f := range headerSynonyms {
		key := foldASCII(k)
		if prev, ok := out[key]; ok && prev != f {
			ambiguous[key] = true
		}
		out[key] = f
	}
	for key := range ambiguous {
		delete(out, key)
	}
	return out
}()

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// foldASCII strips Vietnamese diacritics: "Đối tượng" -> "doi tuong"
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
}

// LookupHeader resolves one header cell to a field
func LookupHeader(header string) (types.Field, bool) {
	h := normalizeHeader(header)
	if h == "" {
		return "", false
	}
	if f, ok := headerSynonyms[h]; ok {
		return f, true
	}
	f, ok := foldedSynonyms[foldASCII(h)]
	return f, ok
}

// MapHeaders maps column indexes to fields. Unrecognized columns are left out.
func MapHeaders(headers []string) map[int]types.Field {
	mapping := make(map[int]types.Field)
	for i, h := range headers {
		if f, ok := LookupHeader(h); ok {
			mapping[i] = f
		}
	}
	return mapping
}

// rowToMap converts one record with mapping. Columns are read left to
// right, so a later column wins when two map to the same field. It returns
// nil when the row has no name.
func rowToMap(record []string, mapping map[int]types.Field) map[string]string {
	row := make(map[string]string, len(mapping))
	for _, i := range slices.Sorted(maps.Keys(mapping)) {
		if i >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[i]); v != "" {
			row[string(mapping[i])] = v
		}
	}
	if row[string(types.FieldName)] == "" {
		return nil
	}
	return row
}
