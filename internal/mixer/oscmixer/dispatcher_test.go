package oscmixer

import (
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
)

func TestMatchAddr(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		addr     string
		match    bool
		captures []string
	}{
		{"exact", "/info/type", "/info/type", true, nil},
		{"exact_mismatch", "/info/type", "/info/version", false, nil},
		{"wildcards", "/strip/@/@", "/strip/3/mute", true, []string{"3", "mute"}},
		{"length_mismatch", "/strip/@/@", "/strip/3", false, nil},
		{"empty_segment", "/strip/@/@", "/strip//mute", false, nil},
		{"literal_after_wildcard", "/bus/@/level", "/bus/0/level", true, []string{"0"}},
		{"literal_after_wildcard_mismatch", "/bus/@/level", "/bus/0/gain", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, captures := matchAddr(tt.pattern, tt.addr)
			assert.Equal(t, tt.match, ok)
			assert.Equal(t, tt.captures, captures)
		})
	}
}

func TestDispatcher_FirstMatchWins(t *testing.T) {
	d := NewDispatcher()
	var hits []string
	d.Handle("/strip/@/level", func(*osc.Message, []string) { hits = append(hits, "level") })
	d.Handle("/strip/@/@", func(_ *osc.Message, c []string) { hits = append(hits, "param:"+c[1]) })

	d.Dispatch(osc.NewMessage("/strip/0/level"))
	d.Dispatch(osc.NewMessage("/strip/0/mute"))
	d.Dispatch(osc.NewMessage("/nothing"))

	assert.Equal(t, []string{"level", "param:mute"}, hits)
}

func TestDispatcher_Bundle(t *testing.T) {
	d := NewDispatcher()
	var hits []string
	d.Handle("/bus/@/@", func(_ *osc.Message, c []string) { hits = append(hits, c[0]+"/"+c[1]) })

	b := osc.NewBundle(time.Now())
	b.Append(osc.NewMessage("/bus/0/sel", int32(1)))
	b.Append(osc.NewMessage("/bus/1/sel", int32(0)))
	d.Dispatch(b)

	assert.Equal(t, []string{"0/sel", "1/sel"}, hits)
}
