package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name   string
		fields types.Fields
		want   string
	}{
		{
			name:   "name and code",
			fields: types.Fields{Name: "Thủ tục A", Code: "X1"},
			want:   "Tên thủ tục hành chính: Thủ tục A\nMã thủ tục: X1",
		},
		{
			name:   "name only",
			fields: types.Fields{Name: "Thủ tục B"},
			want:   "Tên thủ tục hành chính: Thủ tục B",
		},
		{
			name:   "empty name is still first",
			fields: types.Fields{Fee: "0đ"},
			want:   "Tên thủ tục hành chính: \nLệ phí: 0đ",
		},
		{
			name: "all fields in fixed order",
			fields: types.Fields{
				Name:               "N",
				Code:               "C",
				Deadline:           "D",
				Location:           "L",
				Method:             "M",
				LegalBasis:         "LB",
				Fee:                "F",
				Result:             "R",
				Subjects:           "S",
				ImplementingAgency: "IA",
			},
			want: "Tên thủ tục hành chính: N\n" +
				"Mã thủ tục: C\n" +
				"Cơ quan thực hiện: IA\n" +
				"Đối tượng thực hiện: S\n" +
				"Thời hạn giải quyết: D\n" +
				"Địa điểm thực hiện: L\n" +
				"Cách thức thực hiện: M\n" +
				"Lệ phí: F\n" +
				"Kết quả thực hiện: R\n" +
				"Căn cứ pháp lý: LB",
		},
		{
			name:   "absent middle fields are skipped",
			fields: types.Fields{Name: "N", LegalBasis: "LB", Subjects: "S"},
			want:   "Tên thủ tục hành chính: N\nĐối tượng thực hiện: S\nCăn cứ pháp lý: LB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.fields))
		})
	}
}

func TestCanonicalizeIndependentOfInputOrder(t *testing.T) {
	rowA := map[string]string{"name": "Cấp giấy phép", "fee": "50.000đ", "code": "1.001"}
	rowB := map[string]string{"code": "1.001", "fee": "50.000đ", "name": "Cấp giấy phép"}

	for i := 0; i < 20; i++ {
		assert.Equal(t,
			Canonicalize(types.FieldsFromMap(rowA)),
			Canonicalize(types.FieldsFromMap(rowB)))
	}
}

func TestHash(t *testing.T) {
	t.Run("known digest", func(t *testing.T) {
		// sha256("abc")
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Hash("abc"))
	})

	t.Run("equal fields agree", func(t *testing.T) {
		a := Of(types.Fields{Name: "Thủ tục A", Code: "X1"})
		b := Of(types.Fields{Code: "X1", Name: "Thủ tục A"})
		assert.Equal(t, a.Hash, b.Hash)
		assert.Len(t, a.Hash, 64)
	})

	t.Run("any differing field changes the hash", func(t *testing.T) {
		base := types.Fields{Name: "Thủ tục A", Code: "X1"}
		seen := map[string]types.Field{Of(base).Hash: ""}
		for _, field := range types.AllFields {
			f := base
			f.Set(field, f.Get(field)+"!")
			h := Of(f).Hash
			prev, dup := seen[h]
			require.False(t, dup, "hash collision between %q and %q", field, prev)
			seen[h] = field
		}
	})

	t.Run("whitespace around values does not matter after normalize", func(t *testing.T) {
		a := Of(types.Fields{Name: "  Thủ tục A ", Code: "X1\t"}.Normalize())
		b := Of(types.Fields{Name: "Thủ tục A", Code: "X1"})
		assert.Equal(t, a, b)
	})
}

func TestCanonicalizeTrimsValues(t *testing.T) {
	raw := types.Fields{Name: "  Thủ tục A ", Code: "\tX1\n", Fee: "   "}
	assert.Equal(t, "Tên thủ tục hành chính: Thủ tục A\nMã thủ tục: X1", Canonicalize(raw))
	assert.Equal(t, Of(raw.Normalize()), Of(raw))
}

func TestCheckLines(t *testing.T) {
	tests := []struct {
		name    string
		fields  types.Fields
		wantErr bool
	}{
		{"single line", types.Fields{Name: "A", Code: "X1"}, false},
		{"multi-line legal basis", types.Fields{Name: "A", LegalBasis: "Luật Cư trú\nNghị định 62/2021"}, false},
		{"label mid-line", types.Fields{Name: "A", Method: "Trực tuyến. Lệ phí: 0đ"}, false},
		{"name forges code line", types.Fields{Name: "A\nMã thủ tục: X1"}, true},
		{"method forges fee line", types.Fields{Name: "A", Method: "Trực tiếp\nLệ phí: 1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLines(tt.fields)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}

	forged := types.Fields{Name: "A\nMã thủ tục: X1"}
	assert.Equal(t, Canonicalize(types.Fields{Name: "A", Code: "X1"}), Canonicalize(forged),
		"forged and real fields render the same text")
}
