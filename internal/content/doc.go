// Package content derives the canonical text of a procedure and its content
// hash. Both are pure functions shared by every write path, so a procedure
// created through the API and the same procedure imported from a file get
// the same identity.
//
//	id := content.Of(types.Fields{Name: "Thủ tục A", Code: "X1"})
//	// id.Text == "Tên thủ tục hành chính: Thủ tục A\nMã thủ tục: X1"
package content
