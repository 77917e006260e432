package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentical(t *testing.T) {
	m := map[string]int{"a": 1}
	p := &struct{ n int }{}
	s := []int{1, 2, 3}
	ch := make(chan int)
	type point struct{ X, Y int }
	type bag struct{ M map[string]int }
	type doc struct {
		Title string
		Tags  []string
		meta  any
	}
	type hook struct{ F func() }
	tags := []string{"a"}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and value", nil, 0, false},
		{"same map", m, m, true},
		{"equal but distinct maps", m, map[string]int{"a": 1}, false},
		{"same pointer", p, p, true},
		{"distinct pointers", p, &struct{ n int }{}, false},
		{"same slice", s, s, true},
		{"resliced", s, s[:2], false},
		{"equal but distinct slices", s, []int{1, 2, 3}, false},
		{"nil slices", []int(nil), []int(nil), true},
		{"same chan", ch, ch, true},
		{"ints", 3, 3, true},
		{"different ints", 3, 4, false},
		{"strings", "x", "x", true},
		{"different types", int32(1), int64(1), false},
		{"comparable structs", point{1, 2}, point{1, 2}, true},
		{"structs sharing a map", bag{m}, bag{m}, true},
		{"structs with distinct maps", bag{m}, bag{map[string]int{"a": 1}}, false},
		{"copied struct with slice field", doc{"x", tags, nil}, doc{"x", tags, nil}, true},
		{"struct with a rebuilt slice", doc{"x", tags, nil}, doc{"x", []string{"a"}, nil}, false},
		{"struct with a changed scalar", doc{"x", tags, nil}, doc{"y", tags, nil}, false},
		{"unexported interface fields", doc{"x", tags, s}, doc{"x", tags, s}, true},
		{"unexported interface fields differ", doc{"x", tags, 1}, doc{"x", tags, "1"}, false},
		{"struct holding a func", hook{func() {}}, hook{func() {}}, false},
		{"arrays sharing slices", [1][]int{s}, [1][]int{s}, true},
		{"arrays with distinct slices", [1][]int{s}, [1][]int{{1, 2, 3}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, Identical(tt.a, tt.b))
			})
		})
	}
}

func TestIdentical_FuncsNeverIdentical(t *testing.T) {
	f := func() {}
	assert.False(t, Identical(f, f))
}
