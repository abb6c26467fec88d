package page

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vango-dev/navigare/internal/errors"
)

// MaxBaseDepth bounds Page.Base chains.
const MaxBaseDepth = 16

// pageValidate is the validator instance for decoded wire pages.
var pageValidate *validator.Validate

func init() {
	pageValidate = validator.New()
}

func errBaseDepth() error {
	return errors.New("N003").WithDetail(fmt.Sprintf("more than %d nested base pages", MaxBaseDepth))
}

// Decode parses a page from a response body or a history entry and
// stamps fragment back-references.
func Decode(data []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.New("N010").Wrap(err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.attachAll(0)
	return &p, nil
}

func (p *Page) attachAll(depth int) {
	if p == nil || depth > MaxBaseDepth {
		return
	}
	p.AttachFragments()
	p.Base.attachAll(depth + 1)
}

// Encode serializes a page for a history entry.
func Encode(p *Page) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.New("N021").Wrap(err)
	}
	return data, nil
}

// Validate checks the structural requirements of a page: a location, a
// component id on every fragment, and a bounded, acyclic base chain.
func (p *Page) Validate() error {
	seen := make(map[*Page]bool)
	depth := 0
	for cur := p; cur != nil; cur = cur.Base {
		if seen[cur] || depth > MaxBaseDepth {
			return errBaseDepth()
		}
		seen[cur] = true
		depth++

		if err := pageValidate.Var(cur.Location.Href, "required"); err != nil {
			return errors.New("N011").WithDetail("page location is required").Wrap(err)
		}
		for name, stack := range cur.Fragments {
			for i, f := range stack {
				if f == nil {
					continue
				}
				if err := pageValidate.Struct(f); err != nil {
					return errors.New("N011").
						WithDetail(fmt.Sprintf("fragment %s[%d]", name, i)).
						Wrap(err)
				}
			}
		}
	}
	return nil
}
