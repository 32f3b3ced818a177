package editpanel

import (
	"charm.land/bubbles/v2/key"

	"github.com/beeper/msgedit/pkg/richtext"
)

type toolbarButton struct {
	label   string
	binding func(keyMap) key.Binding
	apply   func(*richtext.Document)
}

var toolbarButtons = []toolbarButton{
	{label: "B", binding: func(k keyMap) key.Binding { return k.Bold }, apply: func(d *richtext.Document) { d.Wrap("**", "**") }},
	{label: "I", binding: func(k keyMap) key.Binding { return k.Italic }, apply: func(d *richtext.Document) { d.Wrap("*", "*") }},
	{label: "S", binding: func(k keyMap) key.Binding { return k.Strike }, apply: func(d *richtext.Document) { d.Wrap("~~", "~~") }},
	{label: "</>", binding: func(k keyMap) key.Binding { return k.Code }, apply: func(d *richtext.Document) { d.Wrap("`", "`") }},
	{label: "❝", binding: func(k keyMap) key.Binding { return k.Quote }, apply: func(d *richtext.Document) { d.PrefixLine("> ") }},
}
