package yaml

import (
	"math"
	"strings"

	yaml "gopkg.in/yaml.v3"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/partial"
)

type decoder struct {
	p        *partial.Partial
	opt      Opt
	deferred bool
	last     *yaml.Node
}

func (d *decoder) document(n *yaml.Node) error {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return d.issue(n, goshape.CodeParseError, map[string]any{"reason": "empty input"})
		}
		n = n.Content[0]
	}
	if n.Kind == 0 {
		return d.issue(n, goshape.CodeParseError, map[string]any{"reason": "empty input"})
	}
	return d.value(n)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// variantTag returns the variant named by a local tag such as !Move.
func variantTag(n *yaml.Node) (string, bool) {
	if strings.HasPrefix(n.Tag, "!") && !strings.HasPrefix(n.Tag, "!!") {
		return n.Tag[1:], true
	}
	return "", false
}

func (d *decoder) value(n *yaml.Node) error {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	d.last = n
	s := d.p.Shape()
	if isNull(n) {
		switch s.Kind() {
		case goshape.KindOptional:
			return d.p.SetNone()
		case goshape.KindOpaque:
			return d.p.Set(nil)
		}
		return d.unexpected(s, n)
	}
	switch s.Kind() {
	case goshape.KindOptional:
		if err := d.p.BeginSome(); err != nil {
			return err
		}
		if err := d.value(n); err != nil {
			return err
		}
		return d.p.End()
	case goshape.KindScalar:
		return d.scalar(s, n)
	case goshape.KindOpaque:
		if n.Kind == yaml.ScalarNode && s.Ops().CanParse() {
			return d.p.SetFromText(n.Value)
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		return d.p.Set(v)
	case goshape.KindStruct:
		return d.members(s, n)
	case goshape.KindUnion:
		return d.union(s, n)
	case goshape.KindResult:
		return d.result(s, n)
	case goshape.KindList:
		return d.list(s, n)
	case goshape.KindMap:
		return d.mapping(s, n)
	}
	return d.unexpected(s, n)
}

func (d *decoder) scalar(s *goshape.Shape, n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return d.unexpected(s, n)
	}
	switch s.ScalarKind() {
	case goshape.ScalarString:
		return d.p.Set(n.Value)
	case goshape.ScalarFloat:
		if f, ok := specialFloat(n.Value); ok {
			return d.p.Set(f)
		}
	}
	return d.p.SetFromText(n.Value)
}

func specialFloat(s string) (float64, bool) {
	switch strings.ToLower(s) {
	case ".nan":
		return math.NaN(), true
	case ".inf", "+.inf":
		return math.Inf(1), true
	case "-.inf":
		return math.Inf(-1), true
	}
	return 0, false
}

func hasDotted(n *yaml.Node, p *partial.Partial) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if _, ok := p.FieldIndex(k); !ok && strings.Contains(k, ".") {
			return true
		}
	}
	return false
}

// members fills the fields of the current struct frame, or of the selected
// variant, from a mapping node.
func (d *decoder) members(s *goshape.Shape, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return d.unexpected(s, n)
	}
	if d.opt.DottedKeys && !d.deferred && hasDotted(n, d.p) {
		if err := d.p.BeginDeferred(); err != nil {
			return err
		}
		d.deferred = true
		if err := d.pairs(n); err != nil {
			return err
		}
		d.deferred = false
		return d.p.FinishDeferred()
	}
	return d.pairs(n)
}

func (d *decoder) pairs(n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		d.last = k
		path := []string{k.Value}
		if _, ok := d.p.FieldIndex(k.Value); !ok && d.opt.DottedKeys && strings.Contains(k.Value, ".") {
			path = strings.Split(k.Value, ".")
		}
		if err := d.field(path, k, v); err != nil {
			return err
		}
	}
	return nil
}

// field navigates path, decodes v into the last field and ends every frame
// it opened.
func (d *decoder) field(path []string, k, v *yaml.Node) error {
	opened := 0
	for _, name := range path {
		if _, ok := d.p.FieldIndex(name); !ok {
			if d.opt.Unknown != goshape.UnknownStrip {
				return d.unknownKey(k, name)
			}
			return d.unwind(opened)
		}
		if err := d.p.BeginField(name); err != nil {
			return err
		}
		opened++
	}
	if err := d.value(v); err != nil {
		return err
	}
	return d.unwind(opened)
}

func (d *decoder) unwind(n int) error {
	for ; n > 0; n-- {
		if err := d.p.End(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) union(s *goshape.Shape, n *yaml.Node) error {
	if name, ok := variantTag(n); ok {
		if err := d.p.SelectVariant(name); err != nil {
			return err
		}
		v, _ := d.p.SelectedVariant()
		return d.payload(s, v, n)
	}
	switch {
	case n.Kind == yaml.ScalarNode:
		return d.p.SelectVariant(n.Value)
	case n.Kind != yaml.MappingNode:
		return d.unexpected(s, n)
	case len(n.Content) != 2:
		return d.issue(n, goshape.CodeInvalidType, map[string]any{"expected": s.Name(), "got": "mapping without exactly one tag"})
	}
	if err := d.p.SelectVariant(n.Content[0].Value); err != nil {
		return err
	}
	v, _ := d.p.SelectedVariant()
	return d.payload(s, v, n.Content[1])
}

func (d *decoder) payload(s *goshape.Shape, v *goshape.Variant, n *yaml.Node) error {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch {
	case v.IsUnit():
		if isNull(n) || n.Kind == yaml.ScalarNode && n.Value == "" {
			return nil
		}
		return d.members(s, n)
	case v.IsNewtype():
		if err := d.p.BeginNthField(0); err != nil {
			return err
		}
		if err := d.value(n); err != nil {
			return err
		}
		return d.p.End()
	case v.Fields[0].Name == "0":
		if n.Kind != yaml.SequenceNode {
			return d.unexpected(s, n)
		}
		for i, item := range n.Content {
			if err := d.p.BeginNthField(i); err != nil {
				return err
			}
			if err := d.value(item); err != nil {
				return err
			}
			if err := d.p.End(); err != nil {
				return err
			}
		}
		return nil
	}
	return d.members(s, n)
}

func (d *decoder) result(s *goshape.Shape, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return d.unexpected(s, n)
	}
	var err error
	switch k := n.Content[0]; k.Value {
	case "ok":
		err = d.p.BeginOk()
	case "err":
		err = d.p.BeginErr()
	default:
		return d.unknownKey(k, k.Value)
	}
	if err != nil {
		return err
	}
	if err := d.value(n.Content[1]); err != nil {
		return err
	}
	return d.p.End()
}

func (d *decoder) list(s *goshape.Shape, n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return d.unexpected(s, n)
	}
	for _, item := range n.Content {
		if err := d.p.BeginListItem(); err != nil {
			return err
		}
		if err := d.value(item); err != nil {
			return err
		}
		if err := d.p.End(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) mapping(s *goshape.Shape, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return d.unexpected(s, n)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := d.p.BeginKey(); err != nil {
			return err
		}
		if err := d.value(n.Content[i]); err != nil {
			return err
		}
		if err := d.p.End(); err != nil {
			return err
		}
		if err := d.p.BeginValue(); err != nil {
			return err
		}
		if err := d.value(n.Content[i+1]); err != nil {
			return err
		}
		if err := d.p.End(); err != nil {
			return err
		}
	}
	return nil
}

var kindNames = map[yaml.Kind]string{
	yaml.DocumentNode: "document",
	yaml.SequenceNode: "sequence",
	yaml.MappingNode:  "mapping",
	yaml.ScalarNode:   "scalar",
	yaml.AliasNode:    "alias",
}

func (d *decoder) unexpected(s *goshape.Shape, n *yaml.Node) error {
	got := kindNames[n.Kind]
	if isNull(n) {
		got = "null"
	}
	return d.issue(n, goshape.CodeInvalidType, map[string]any{"expected": s.Name(), "got": got})
}

func (d *decoder) unknownKey(k *yaml.Node, name string) error {
	d.last = k
	return goshape.Issues{goshape.NewIssue(goshape.JoinPointer(d.p.Path(), name), goshape.CodeUnknownKey, map[string]any{"key": name})}
}

func (d *decoder) issue(n *yaml.Node, code string, params map[string]any) error {
	d.last = n
	return goshape.Issues{goshape.NewIssue(d.p.Path(), code, params)}
}
