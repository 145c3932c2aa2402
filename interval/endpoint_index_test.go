package interval

import (
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestExpsearchMatchesSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 100; iter++ {
		n := rng.Intn(20) * 2
		endpoints := make([]PosType, n)
		pos := PosType(0)
		for i := range endpoints {
			pos += PosType(1 + rng.Intn(50))
			endpoints[i] = pos
		}
		idx := EndpointIndex(0)
		for x := PosType(0); x < pos+5; x += PosType(1 + rng.Intn(7)) {
			want := SearchPosTypes(endpoints, x)
			idx = ExpsearchPosType(endpoints, x, idx)
			expect.EQ(t, idx, want)
		}
	}
}

func TestEndpointIndexContained(t *testing.T) {
	endpoints := []PosType{5, 17, 20, 25}
	tests := []struct {
		pos  PosType
		want bool
	}{
		{4, false},
		{5, true},
		{16, true},
		{17, false},
		{19, false},
		{20, true},
		{24, true},
		{25, false},
	}
	for _, tt := range tests {
		expect.EQ(t, NewEndpointIndex(tt.pos, endpoints).Contained(), tt.want)
	}
}
