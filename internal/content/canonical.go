package content

import (
	"strings"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

// line pairs a field with the label it is rendered under.
type line struct {
	field types.Field
	label string
}

// canonicalOrder is the fixed rendering order. Changing it changes every
// content hash already stored.
var canonicalOrder = []line{
	{types.FieldName, "Tên thủ tục hành chính: "},
	{types.FieldCode, "Mã thủ tục: "},
	{types.FieldImplementingAgency, "Cơ quan thực hiện: "},
	{types.FieldSubjects, "Đối tượng thực hiện: "},
	{types.FieldDeadline, "Thời hạn giải quyết: "},
	{types.FieldLocation, "Địa điểm thực hiện: "},
	{types.FieldMethod, "Cách thức thực hiện: "},
	{types.FieldFee, "Lệ phí: "},
	{types.FieldResult, "Kết quả thực hiện: "},
	{types.FieldLegalBasis, "Căn cứ pháp lý: "},
}

// Canonicalize renders fields as one labelled line per present field.
// Values are trimmed first. The name line is always first, even when the
// name is empty.
func Canonicalize(f types.Fields) string {
	f = f.Normalize()
	var b strings.Builder
	for i, l := range canonicalOrder {
		v := f.Get(l.field)
		if i > 0 {
			if v == "" {
				continue
			}
			b.WriteByte('\n')
		}
		b.WriteString(l.label)
		b.WriteString(v)
	}
	return b.String()
}

// CheckLines rejects values with a line that starts with a field label.
// Such a value renders the same text as a different set of fields.
func CheckLines(f types.Fields) error {
	for _, owner := range canonicalOrder {
		v := f.Get(owner.field)
		if !strings.Contains(v, "\n") {
			continue
		}
		for _, ln := range strings.Split(v, "\n")[1:] {
			for _, l := range canonicalOrder {
				if strings.HasPrefix(ln, l.label) {
					return types.Invalid("%s has a line starting with %q", owner.field, strings.TrimSpace(l.label))
				}
			}
		}
	}
	return nil
}
