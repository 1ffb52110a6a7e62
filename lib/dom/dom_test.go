package dom

import (
	"testing"
)

func TestParseIntoAndRender(t *testing.T) {
	main := Element("main")
	if err := ParseInto(main, `<div><div class="hero dark"><div>Hi</div></div></div><div><p>text</p></div>`); err != nil {
		t.Fatalf("ParseInto() error = %v", err)
	}

	sections := Children(main)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}

	hero := FirstElementChild(sections[0])
	if got := Classes(hero); len(got) != 2 || got[0] != "hero" {
		t.Errorf("Classes() = %v", got)
	}

	want := `<main><div><div class="hero dark"><div>Hi</div></div></div><div><p>text</p></div></main>`
	if got := Render(main); got != want {
		t.Errorf("Render() = %s\nwant %s", got, want)
	}
}

func TestAttributes(t *testing.T) {
	n := Element("div", "class", "a", "id", "x")

	SetAttr(n, "id", "y")
	if Attr(n, "id") != "y" {
		t.Errorf("SetAttr did not replace: %v", n.Attr)
	}

	AddClass(n, "b", "a", "")
	if Attr(n, "class") != "a b" {
		t.Errorf("class = %q, want %q", Attr(n, "class"), "a b")
	}

	SetData(n, "block-status", "loaded")
	if Data(n, "block-status") != "loaded" || !HasAttr(n, "data-block-status") {
		t.Errorf("data attribute not set: %v", n.Attr)
	}

	RemoveAttr(n, "id")
	if HasAttr(n, "id") {
		t.Error("RemoveAttr left id")
	}
}

func TestMoveAndWrap(t *testing.T) {
	src := Element("main")
	_ = ParseInto(src, `<div>1</div><div>2</div>text`)
	dst := Element("nav")

	MoveChildren(dst, src)
	if src.FirstChild != nil {
		t.Error("source should be empty")
	}
	if got := RenderChildren(dst); got != `<div>1</div><div>2</div>text` {
		t.Errorf("moved children = %s", got)
	}

	inner := FirstElementChild(dst)
	wrapper := Element("div", "class", "wrapper")
	Wrap(inner, wrapper)
	if FirstElementChild(dst) != wrapper || inner.Parent != wrapper {
		t.Error("Wrap did not put wrapper in place")
	}
}

func TestFindAll(t *testing.T) {
	root := Element("main")
	_ = ParseInto(root, `<div class="section"><div class="a section"></div></div><p class="section"></p>`)

	got := FindAll(root, ByClass("section"))
	if len(got) != 3 {
		t.Fatalf("FindAll(.section) = %d nodes, want 3", len(got))
	}
	if got[1].Parent != got[0] {
		t.Error("FindAll should return document order")
	}
	if n := len(FindAll(root, ByTag("p"))); n != 1 {
		t.Errorf("FindAll(p) = %d, want 1", n)
	}
	if !IsElement(got[2], "p", "span") || IsElement(got[2], "div") {
		t.Error("IsElement tag filter")
	}
}
