package dump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlots(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "flat values",
			in:   `(struct{(1 uint64),("a" string),(true bool)} pkg.T)`,
			want: []string{"1 uint64", `"a" string`, "true bool"},
		},
		{
			name: "nested groups stay in one slot",
			in:   `struct{(ref(h:1) time.Time),(&(struct{(5 uint64)}) *dao.DAO),(2 int)}`,
			want: []string{"ref(h:1) time.Time", "&(struct{(5 uint64)}) *dao.DAO", "2 int"},
		},
		{
			name: "empty body",
			in:   `struct{}`,
			want: []string{},
		},
		{
			name: "no struct anchor",
			in:   `(nil *pkg.Bounty)`,
			want: nil,
		},
		{
			name: "unterminated body",
			in:   `struct{(1 uint64),(2 uint64)`,
			want: nil,
		},
		{
			name: "quoted parens are not special-cased",
			in:   `struct{("a) b" string),(2 int)}`,
			want: []string{`"a`, "2 int"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Slots(tc.in))
		})
	}
}

func TestBalancedLen(t *testing.T) {
	assert.Equal(t, len("(&(struct{(1 x)}) *T)"), balancedLen("(&(struct{(1 x)}) *T) trailing"))
	assert.Equal(t, len(`(&(struct{("a{b" string)}) *T)`), balancedLen(`(&(struct{("a{b" string)}) *T),`))
	assert.Equal(t, len("ref(h:1)"), balancedLen("ref(h:1) time.Time"))
	assert.Equal(t, -1, balancedLen("(&(struct{(1 x),(2"))
	assert.Equal(t, -1, balancedLen("no groups here"))
}

func TestStructLen(t *testing.T) {
	assert.Equal(t, len("struct{(1 x),(2 y)}"), structLen("struct{(1 x),(2 y)}),"))
	assert.Equal(t, len(`struct{("}{" string)}`), structLen(`struct{("}{" string)} pkg.T`))
	assert.Equal(t, -1, structLen("struct{(1 x),(2"))
	assert.Equal(t, -1, structLen("(1 x)"))
}

func TestSliceRegion(t *testing.T) {
	suffix := suffixPattern("Application")

	region, ok := sliceRegion(`(slice[(1 int),(slice[(2 int)] []int)] []*gno.land/r/x/y.Application)`, suffix)
	require.True(t, ok)
	assert.Equal(t, `(1 int),(slice[(2 int)] []int)`, region)

	_, ok = sliceRegion(`(slice[(1 int)] []gno.land/r/x/y.Bounty)`, suffix)
	assert.False(t, ok, "suffix must name the element type")

	_, ok = sliceRegion(`(slice[(1 int)] []gno.land/r/x/y.ApplicationStatus)`, suffix)
	assert.False(t, ok, "suffix must end at a word boundary")

	_, ok = sliceRegion(`(slice[(1 int)`, suffix)
	assert.False(t, ok)

	region, ok = sliceRegion(`(slice[] []Application)`, suffix)
	require.True(t, ok)
	assert.Empty(t, region)
}

func TestSliceRegionSkipsOtherSlices(t *testing.T) {
	in := `(slice[("x" string)] []string) (slice[(struct{(1 int)})] []LeaderboardEntry)`
	region, ok := sliceRegion(in, suffixPattern("LeaderboardEntry"))
	require.True(t, ok)
	assert.Equal(t, `(struct{(1 int)})`, region)
}

func TestElements(t *testing.T) {
	region := `(&(struct{(1 uint64),(&(struct{(9 uint64)}) *dao.DAO)}) *pkg.Application),` +
		`(struct{(2 uint64)} pkg.Application),` +
		`struct{(3 uint64),(4`

	got := elements(region)
	require.Len(t, got, 2)
	assert.Equal(t, `(&(struct{(1 uint64),(&(struct{(9 uint64)}) *dao.DAO)}) *pkg.Application)`, got[0])
	assert.Equal(t, `struct{(2 uint64)}`, got[1])
}

func TestElementsBraceInString(t *testing.T) {
	region := `(&(struct{(1 uint64),("https://x/{draft" string)}) *pkg.Application),` +
		`(&(struct{(2 uint64),("ok" string)}) *pkg.Application)`

	got := elements(region)
	require.Len(t, got, 2)
	assert.Equal(t, `(&(struct{(2 uint64),("ok" string)}) *pkg.Application)`, got[1])
}

func TestElementsSkipsUnclosed(t *testing.T) {
	region := `struct{(1 uint64),(2,(struct{(3 uint64)} pkg.Application)`

	got := elements(region)
	assert.Equal(t, []string{`struct{(3 uint64)}`}, got)
}

func TestElementsEmpty(t *testing.T) {
	assert.Empty(t, elements(""))
	assert.NotNil(t, elements(""))
}
