package xmltag

import "testing"

func TestSetGetRemove(t *testing.T) {
	tag := New("verse")
	tag.Set("osisID", "Gen.1.1")
	tag.Set("sID", "v1")

	if v, ok := tag.Get("osisID"); !ok || v != "Gen.1.1" {
		t.Errorf("Get(osisID) = %q, %v", v, ok)
	}

	tag.Set("osisID", "Gen.1.2")
	if v, _ := tag.Get("osisID"); v != "Gen.1.2" {
		t.Errorf("overwrite osisID = %q, want Gen.1.2", v)
	}
	if len(tag.Attributes) != 2 {
		t.Errorf("overwrite should not append, got %d attrs", len(tag.Attributes))
	}

	tag.Remove("sID")
	if _, ok := tag.Get("sID"); ok {
		t.Error("sID should be removed")
	}
}

func TestMilestoneEnd(t *testing.T) {
	tests := []struct {
		name string
		tag  *Tag
		want bool
	}{
		{"end tag", &Tag{Name: "verse", IsEnd: true}, true},
		{"eID milestone", &Tag{Name: "verse", Attributes: []Attr{{Name: "eID", Value: "v1"}}}, true},
		{"start tag", &Tag{Name: "verse", Attributes: []Attr{{Name: "sID", Value: "v1"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tag.IsMilestoneEnd(); got != tt.want {
				t.Errorf("IsMilestoneEnd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tag := &Tag{Name: "div", Attributes: []Attr{{Name: "type", Value: "book"}, {Name: "sID", Value: "g"}}, IsEmpty: true}
	want := `<div type="book" sID="g"/>`
	if got := tag.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestClone(t *testing.T) {
	orig := New("chapter")
	orig.Set("sID", "c1")
	clone := orig.Clone()
	clone.Set("sID", "c1-end")
	clone.IsEnd = true

	if v, _ := orig.Get("sID"); v != "c1" {
		t.Errorf("original mutated: sID = %q", v)
	}
	if v, _ := clone.Get("sID"); v != "c1-end" {
		t.Errorf("clone sID = %q, want c1-end", v)
	}
}
