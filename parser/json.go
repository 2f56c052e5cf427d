package parser

import "encoding/json"

type jsonNode struct {
	Kind     string      `json:"kind"`
	Span     jsonSpan    `json:"span"`
	Text     string      `json:"text,omitempty"`
	Missing  bool        `json:"missing,omitempty"`
	Extra    bool        `json:"extra,omitempty"`
	Error    *jsonError  `json:"error,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonSpan struct {
	Start jsonPosition `json:"start"`
	End   jsonPosition `json:"end"`
}

type jsonPosition struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

type jsonError struct {
	Message  string   `json:"message"`
	Expected []string `json:"expected,omitempty"`
	Got      string   `json:"got,omitempty"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

func (n Node) toJSON() *jsonNode {
	jn := &jsonNode{
		Kind:    n.Kind(),
		Missing: n.IsMissing(),
		Extra:   n.IsExtra(),
		Span: jsonSpan{
			Start: jsonPosition{Offset: n.StartByte(), Line: n.StartPoint().Row + 1, Column: n.StartPoint().Column + 1},
			End:   jsonPosition{Offset: n.EndByte(), Line: n.EndPoint().Row + 1, Column: n.EndPoint().Column + 1},
		},
	}

	if n.sub.isLeaf() {
		jn.Text = n.Text()
	}

	if se := n.Error(); se != nil {
		jn.Error = &jsonError{
			Message:  se.Error(),
			Expected: se.Expected,
			Got:      se.Got,
		}
	}

	for _, child := range n.Children() {
		jn.Children = append(jn.Children, child.toJSON())
	}

	return jn
}
