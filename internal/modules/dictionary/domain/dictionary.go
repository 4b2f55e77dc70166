package domain

import "time"

// Dictionary groups categories of keywords. Only words reachable through an
// active dictionary participate in matching.
type Dictionary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category is a node in a dictionary's category hierarchy. Nesting is
// stored as a parent id; trees are reconstructed at read time.
type Category struct {
	ID           int64     `json:"id"`
	DictionaryID int64     `json:"dictionary_id"`
	ParentID     *int64    `json:"parent_id,omitempty"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Word is a single dictionary keyword. NormalizedWord is derived from Word
// and recomputed whenever the original text changes.
type Word struct {
	ID             int64          `json:"id"`
	CategoryID     int64          `json:"category_id"`
	Word           string         `json:"word"`
	NormalizedWord string         `json:"normalized_word"`
	IsActive       bool           `json:"is_active"`
	ExtraData      map[string]any `json:"extra_data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CategoryNode is a category with its resolved children.
type CategoryNode struct {
	*Category
	Children []*CategoryNode `json:"children,omitempty"`
}

// BuildCategoryTree reconstructs the category forest from a flat list via
// id-indexed lookup. Categories whose parent is missing from the input are
// treated as roots.
func BuildCategoryTree(categories []*Category) []*CategoryNode {
	nodes := make(map[int64]*CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &CategoryNode{Category: c}
	}

	var roots []*CategoryNode
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
