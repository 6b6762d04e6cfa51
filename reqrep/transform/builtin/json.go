package builtin

import (
	"context"
	"strings"

	"github.com/agaheman/ReqRepTransformation/reqrep/msgctx"
	"github.com/agaheman/ReqRepTransformation/reqrep/transform"
)

func asObject(tree any) (map[string]any, bool) {
	obj, ok := tree.(map[string]any)
	return obj, ok
}

// JSONFieldAdd sets a top-level field to a fixed value.
type JSONFieldAdd struct {
	field string
	value any
}

func NewJSONFieldAdd() transform.Transform { return &JSONFieldAdd{} }

func (t *JSONFieldAdd) Name() string { return "json-field-add" }

func (t *JSONFieldAdd) Configure(p *transform.ParamBag) error {
	field, err := p.RequiredString("field")
	if err != nil {
		return err
	}
	t.field = field
	t.value = p.String("value", "")
	return nil
}

func (t *JSONFieldAdd) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Payload().IsJson() && ctx.Payload().HasBody()
}

func (t *JSONFieldAdd) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	tree, err := mc.Payload().GetJson()
	if err != nil {
		return err
	}
	obj, ok := asObject(tree)
	if !ok {
		obj = map[string]any{}
	}
	obj[t.field] = t.value
	return mc.Payload().SetJson(obj)
}

// JSONFieldRemove deletes a top-level field.
type JSONFieldRemove struct {
	field string
}

func NewJSONFieldRemove() transform.Transform { return &JSONFieldRemove{} }

func (t *JSONFieldRemove) Name() string { return "json-field-remove" }

func (t *JSONFieldRemove) Configure(p *transform.ParamBag) error {
	field, err := p.RequiredString("field")
	if err != nil {
		return err
	}
	t.field = field
	return nil
}

func (t *JSONFieldRemove) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Payload().IsJson() && ctx.Payload().HasBody()
}

func (t *JSONFieldRemove) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	tree, err := mc.Payload().GetJson()
	if err != nil {
		return err
	}
	obj, ok := asObject(tree)
	if !ok {
		return nil
	}
	delete(obj, t.field)
	return mc.Payload().SetJson(obj)
}

// JSONFieldRename moves a top-level field's value to a new key.
type JSONFieldRename struct {
	from, to string
}

func NewJSONFieldRename() transform.Transform { return &JSONFieldRename{} }

func (t *JSONFieldRename) Name() string { return "json-field-rename" }

func (t *JSONFieldRename) Configure(p *transform.ParamBag) error {
	from, err := p.RequiredString("from")
	if err != nil {
		return err
	}
	to, err := p.RequiredString("to")
	if err != nil {
		return err
	}
	t.from, t.to = from, to
	return nil
}

func (t *JSONFieldRename) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Payload().IsJson() && ctx.Payload().HasBody()
}

func (t *JSONFieldRename) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	tree, err := mc.Payload().GetJson()
	if err != nil {
		return err
	}
	obj, ok := asObject(tree)
	if !ok {
		return nil
	}
	if v, present := obj[t.from]; present {
		delete(obj, t.from)
		obj[t.to] = v
	}
	return mc.Payload().SetJson(obj)
}

// JSONNestedSet sets a dot-separated nested path to a fixed value, creating
// intermediate objects as needed.
type JSONNestedSet struct {
	path  []string
	value any
}

func NewJSONNestedSet() transform.Transform { return &JSONNestedSet{} }

func (t *JSONNestedSet) Name() string { return "json-nested-set" }

func (t *JSONNestedSet) Configure(p *transform.ParamBag) error {
	path, err := p.RequiredString("path")
	if err != nil {
		return err
	}
	t.path = strings.Split(path, ".")
	t.value = p.String("value", "")
	return nil
}

func (t *JSONNestedSet) ShouldApply(ctx *msgctx.BufferedView) bool {
	return ctx.Payload().IsJson() && ctx.Payload().HasBody() && len(t.path) > 0
}

func (t *JSONNestedSet) Apply(ctx context.Context, mc *msgctx.BufferedView) error {
	tree, err := mc.Payload().GetJson()
	if err != nil {
		return err
	}
	root, ok := asObject(tree)
	if !ok {
		root = map[string]any{}
	}

	cursor := root
	for _, segment := range t.path[:len(t.path)-1] {
		next, ok := cursor[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			cursor[segment] = next
		}
		cursor = next
	}
	cursor[t.path[len(t.path)-1]] = t.value

	return mc.Payload().SetJson(root)
}
