// Package citation groups ranked chunk matches by procedure and renders the
// document blocks handed to the answering model.
package citation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

const (
	// Prefix marks citation ids of this content domain
	Prefix = "tthc"

	// DocumentType tags every rendered document block
	DocumentType = "TTHC"

	// NoResults is rendered instead of an empty document
	NoResults = "Không tìm thấy thủ tục hành chính liên quan."
)

// ChunkID formats the citation id of a chunk
func ChunkID(id int64) string {
	return Prefix + "-" + strconv.FormatInt(id, 10)
}

// DocumentID formats the document id of a procedure
func DocumentID(id int64) string {
	return Prefix + "-" + strconv.FormatInt(id, 10)
}

// SourceURL formats the source locator of a procedure
func SourceURL(id int64) string {
	return Prefix + "/" + strconv.FormatInt(id, 10)
}

// ParseChunkID accepts "tthc-<n>" or a bare "<n>" and returns n.
func ParseChunkID(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, Prefix+"-")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidChunkID, s)
	}
	return id, nil
}

// Entry is one metadata key/value pair
type Entry struct {
	Key   string
	Value string
}

// Metadata is an ordered JSON object of a procedure's non-empty optional fields
type Metadata []Entry

// metadataFields lists the fields copied into Metadata, in order
var metadataFields = []types.Field{
	types.FieldCode,
	types.FieldDeadline,
	types.FieldLocation,
	types.FieldMethod,
	types.FieldFee,
	types.FieldImplementingAgency,
	types.FieldSubjects,
}

// MetadataOf collects the non-empty metadata fields of f
func MetadataOf(f types.Fields) Metadata {
	md := make(Metadata, 0, len(metadataFields))
	for _, field := range metadataFields {
		if v := f.Get(field); v != "" {
			md = append(md, Entry{Key: string(field), Value: v})
		}
	}
	return md
}

// MarshalJSON writes keys in order as `{"k": "v", "k2": "v2"}` without
// escaping non-ASCII or HTML characters.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	var out bytes.Buffer
	out.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			out.WriteString(", ")
		}
		for j, s := range []string{e.Key, e.Value} {
			buf.Reset()
			if err := enc.Encode(s); err != nil {
				return nil, err
			}
			out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
			if j == 0 {
				out.WriteString(": ")
			}
		}
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// Fragment is one cited chunk inside a group
type Fragment struct {
	CitationID string
	ChunkID    int64
	Content    string
}

// Group is every match of one procedure, in rank order
type Group struct {
	DocumentID  string
	ProcedureID int64
	Title       string
	URL         string
	Metadata    Metadata
	Fragments   []Fragment
}

// Document is the assembled search result
type Document struct {
	Groups []Group
}

// Empty reports whether the document has no groups
func (d *Document) Empty() bool {
	return d == nil || len(d.Groups) == 0
}

// Assemble groups matches by owning procedure. Groups appear in the order
// their procedure is first met in matches; later chunks of a seen procedure
// are appended to its group. Matches without a procedure are ignored.
func Assemble(matches []types.Match) *Document {
	doc := &Document{}
	index := make(map[int64]int)

	for _, m := range matches {
		if m.Procedure == nil {
			continue
		}
		p := m.Procedure
		i, seen := index[p.ID]
		if !seen {
			i = len(doc.Groups)
			index[p.ID] = i
			doc.Groups = append(doc.Groups, Group{
				DocumentID:  DocumentID(p.ID),
				ProcedureID: p.ID,
				Title:       p.Name,
				URL:         SourceURL(p.ID),
				Metadata:    MetadataOf(p.Fields),
			})
		}
		doc.Groups[i].Fragments = append(doc.Groups[i].Fragments, Fragment{
			CitationID: ChunkID(m.Chunk.ID),
			ChunkID:    m.Chunk.ID,
			Content:    m.Chunk.Content,
		})
	}
	return doc
}

// cdata wraps s in a CDATA section. A literal "]]>" is split across two
// sections so it cannot close the block early.
func cdata(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}

// Render returns the document blocks as text, or NoResults when empty
func (d *Document) Render() (string, error) {
	if d.Empty() {
		return NoResults, nil
	}

	parts := make([]string, 0, len(d.Groups)*14)
	for _, g := range d.Groups {
		md, err := g.Metadata.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("encode metadata of %s: %w", g.DocumentID, err)
		}

		parts = append(parts,
			"<document>",
			"<document_metadata>",
			"  <document_id>"+g.DocumentID+"</document_id>",
			"  <document_type>"+DocumentType+"</document_type>",
			"  <title>"+cdata(g.Title)+"</title>",
			"  <url>"+cdata(g.URL)+"</url>",
			"  <metadata_json>"+cdata(string(md))+"</metadata_json>",
			"</document_metadata>",
			"",
			"<document_content>",
		)
		for _, f := range g.Fragments {
			parts = append(parts, "  <chunk id='"+f.CitationID+"'>"+cdata(f.Content)+"</chunk>")
		}
		parts = append(parts,
			"</document_content>",
			"</document>",
			"",
		)
	}

	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// Format assembles and renders matches in one step
func Format(matches []types.Match) (string, error) {
	return Assemble(matches).Render()
}
