package pdfdoc

import (
	"errors"
	"fmt"
)

// maxPageTreeDepth はページツリーの循環参照対策の上限です。
const maxPageTreeDepth = 64

// WalkPages はカタログの /Pages からページツリーを辿り、
// リーフ（/Type /Page）のオブジェクト番号を文書順で返します。
func WalkPages(doc Document) ([]int, error) {
	root, ok := doc.Root()
	if !ok {
		return nil, errors.New("document has no root reference")
	}
	catalog, err := doc.Resolve(root.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog: %w", err)
	}
	pagesRef, ok := catalog.Dict.Ref("Pages")
	if !ok {
		return nil, nil
	}

	var pages []int
	seen := make(map[int]bool)
	var walk func(id, depth int) error
	walk = func(id, depth int) error {
		if depth > maxPageTreeDepth || seen[id] {
			return fmt.Errorf("page tree loop at object %d", id)
		}
		seen[id] = true

		node, err := doc.Resolve(id)
		if err != nil {
			return fmt.Errorf("resolve page node %d: %w", id, err)
		}
		if node.Dict.Is("Type", "Page") {
			pages = append(pages, id)
			return nil
		}
		kids, _ := node.Dict.Array("Kids")
		for _, kid := range kids {
			ref, ok := kid.(Ref)
			if !ok {
				continue
			}
			if err := walk(ref.ID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(pagesRef.ID, 0); err != nil {
		return nil, err
	}
	return pages, nil
}
