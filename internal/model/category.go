package model

import "time"

// Category groups documents. Categories form a tree through ParentID.
type Category struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *string    `json:"parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	Children    []Category `json:"children,omitempty"`
}

// BuildCategoryTree nests a flat category list under their parents.
// Categories whose parent is missing from the list become roots.
// Sibling order follows the input order.
func BuildCategoryTree(flat []Category) []Category {
	byParent := make(map[string][]Category)
	known := make(map[string]bool, len(flat))
	for _, c := range flat {
		known[c.ID] = true
	}

	var roots []Category
	for _, c := range flat {
		if c.ParentID != nil && known[*c.ParentID] && *c.ParentID != c.ID {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}

	var attach func(c Category, seen map[string]bool) Category
	attach = func(c Category, seen map[string]bool) Category {
		if seen[c.ID] {
			return c
		}
		seen[c.ID] = true
		children := byParent[c.ID]
		c.Children = make([]Category, 0, len(children))
		for _, child := range children {
			c.Children = append(c.Children, attach(child, seen))
		}
		return c
	}

	out := make([]Category, 0, len(roots))
	seen := make(map[string]bool, len(flat))
	for _, r := range roots {
		out = append(out, attach(r, seen))
	}
	return out
}
