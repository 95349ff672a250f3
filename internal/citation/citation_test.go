package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

func match(p *types.Procedure, chunkID int64, content string) types.Match {
	return types.Match{
		Chunk:     types.Chunk{ID: chunkID, ProcedureID: p.ID, Content: content},
		Procedure: p,
	}
}

func TestParseChunkID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"tthc-42", 42, false},
		{"42", 42, false},
		{" tthc-7 ", 7, false},
		{"tthc-", 0, true},
		{"doc-42", 0, true},
		{"tthc-0", 0, true},
		{"tthc--3", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChunkID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidChunkID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, ChunkID(got)))
		})
	}
}

func mustParse(t *testing.T, s string) int64 {
	t.Helper()
	id, err := ParseChunkID(s)
	require.NoError(t, err)
	return id
}

func TestAssembleGroupsInFirstSeenOrder(t *testing.T) {
	a := &types.Procedure{ID: 1, Fields: types.Fields{Name: "A"}}
	b := &types.Procedure{ID: 2, Fields: types.Fields{Name: "B"}}

	doc := Assemble([]types.Match{
		match(b, 20, "b1"),
		match(a, 10, "a1"),
		match(b, 21, "b2"),
		{Chunk: types.Chunk{ID: 99}},
	})

	require.Len(t, doc.Groups, 2)
	assert.Equal(t, "tthc-2", doc.Groups[0].DocumentID)
	assert.Equal(t, "tthc/2", doc.Groups[0].URL)
	assert.Equal(t, []string{"tthc-20", "tthc-21"}, citationIDs(doc.Groups[0]))
	assert.Equal(t, "tthc-1", doc.Groups[1].DocumentID)
	assert.Equal(t, []string{"tthc-10"}, citationIDs(doc.Groups[1]))
}

func citationIDs(g Group) []string {
	ids := make([]string, len(g.Fragments))
	for i, f := range g.Fragments {
		ids[i] = f.CitationID
	}
	return ids
}

func TestMetadataOmitsEmptyFields(t *testing.T) {
	md := MetadataOf(types.Fields{
		Name:               "ignored",
		Code:               "1.001",
		Fee:                "50.000 đồng",
		LegalBasis:         "ignored too",
		ImplementingAgency: "UBND xã",
	})

	b, err := md.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"code": "1.001", "fee": "50.000 đồng", "implementing_agency": "UBND xã"}`, string(b))

	empty, err := Metadata{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

func TestMetadataEscaping(t *testing.T) {
	b, err := Metadata{{Key: "fee", Value: "a \"b\" <c> & d\ne"}}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"fee": "a \"b\" <c> & d\ne"}`, string(b))
}

func TestRender(t *testing.T) {
	p := &types.Procedure{ID: 5, Fields: types.Fields{Name: "Thủ tục A", Code: "X1"}}
	q := &types.Procedure{ID: 6, Fields: types.Fields{Name: "Thủ tục B"}}

	got, err := Format([]types.Match{
		match(p, 11, "Tên thủ tục hành chính: Thủ tục A"),
		match(q, 12, "B"),
		match(p, 13, "Mã thủ tục: X1"),
	})
	require.NoError(t, err)

	want := strings.Join([]string{
		"<document>",
		"<document_metadata>",
		"  <document_id>tthc-5</document_id>",
		"  <document_type>TTHC</document_type>",
		"  <title><![CDATA[Thủ tục A]]></title>",
		"  <url><![CDATA[tthc/5]]></url>",
		`  <metadata_json><![CDATA[{"code": "X1"}]]></metadata_json>`,
		"</document_metadata>",
		"",
		"<document_content>",
		"  <chunk id='tthc-11'><![CDATA[Tên thủ tục hành chính: Thủ tục A]]></chunk>",
		"  <chunk id='tthc-13'><![CDATA[Mã thủ tục: X1]]></chunk>",
		"</document_content>",
		"</document>",
		"",
		"<document>",
		"<document_metadata>",
		"  <document_id>tthc-6</document_id>",
		"  <document_type>TTHC</document_type>",
		"  <title><![CDATA[Thủ tục B]]></title>",
		"  <url><![CDATA[tthc/6]]></url>",
		"  <metadata_json><![CDATA[{}]]></metadata_json>",
		"</document_metadata>",
		"",
		"<document_content>",
		"  <chunk id='tthc-12'><![CDATA[B]]></chunk>",
		"</document_content>",
		"</document>",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRenderNoResults(t *testing.T) {
	got, err := Format(nil)
	require.NoError(t, err)
	assert.Equal(t, NoResults, got)
}

func TestCDATATerminatorIsSplit(t *testing.T) {
	p := &types.Procedure{ID: 1, Fields: types.Fields{Name: "x]]>y"}}
	got, err := Format([]types.Match{match(p, 1, "a]]>b")})
	require.NoError(t, err)

	assert.Contains(t, got, "<title><![CDATA[x]]]]><![CDATA[>y]]></title>")
	assert.Contains(t, got, "<![CDATA[a]]]]><![CDATA[>b]]></chunk>")
}
