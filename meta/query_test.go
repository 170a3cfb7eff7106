package meta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"value", `{"field":"a.b","op":"$eq","rvalue":"x"}`, "a.b = x"},
		{"field", `{"field":"a","op":">=","rfield":"$parent.b"}`, "a >= $parent.b"},
		{"regex", `{"field":"name","regex":"^j.*"}`, "name =~ /^j.*/"},
		{"in", `{"field":"s","op":"$in","values":[1,2]}`, "s $in [1 2]"},
		{"not", `{"$not":{"field":"a","op":"=","rvalue":1}}`, "$not(a = 1)"},
		{"or", `{"$or":[{"field":"a","op":"=","rvalue":1},{"field":"b","op":"!=","rvalue":2}]}`, "$or(a = 1, b != 2)"},
		{"any alias", `{"$any":[{"field":"a","op":"<","rvalue":1}]}`, "$or(a < 1)"},
		{"implied and", `[{"field":"a","op":"=","rvalue":1},{"field":"b","op":"=","rvalue":2}]`, "$and(a = 1, b = 2)"},
		{"contains", `{"array":"tags","contains":"$all","values":["x"]}`, "tags $all [x]"},
		{"elemMatch", `{"array":"lines","elemMatch":{"field":"sku","op":"=","rvalue":"k"}}`, "lines elemMatch(sku = k)"},
		{"yaml", "field: a\nop: $lt\nrvalue: 3\n", "a < 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.String())
		})
	}
}

func TestParseQueryErrors(t *testing.T) {
	for _, in := range []string{
		`{"op":"=","rvalue":1}`,
		`{"field":"a","op":"~","rvalue":1}`,
		`{"field":"a","op":"="}`,
		`{"field":"a","op":"$between","values":[1]}`,
		`{"array":"a","contains":"$some","values":[1]}`,
		`{"$and":{"field":"a"}}`,
		`"just a string"`,
		``,
		`{"field": [`,
	} {
		_, err := ParseQuery([]byte(in))
		assert.True(t, errors.Is(err, ErrInvalidQuery), "%q: %v", in, err)
	}
}

func TestQueryFields(t *testing.T) {
	q := mustQuery(t, `{"$and":[
		{"field":"a","op":"=","rfield":"b"},
		{"$not":{"field":"c.d","regex":"x"}},
		{"array":"lines","elemMatch":{"field":"sku","op":"=","rvalue":"k"}}
	]}`)
	var got []string
	for _, p := range QueryFields(q) {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"a", "b", "c.d", "lines", "lines.*.sku"}, got)
}

func TestMapQueryFields(t *testing.T) {
	q := mustQuery(t, `{"$or":[
		{"field":"a","op":"=","rfield":"b"},
		{"field":"s","op":"$nin","values":[1]},
		{"array":"lines","elemMatch":{"field":"sku","op":"=","rvalue":"k"}}
	]}`)
	prefix := ParsePath("x.*")
	out, err := MapQueryFields(q, func(p Path) (Path, error) { return prefix.Concat(p), nil })
	require.NoError(t, err)
	assert.Equal(t, "$or(x.*.a = x.*.b, x.*.s $nin [1], x.*.lines elemMatch(sku = k))", out.String())
	// the input is left alone
	assert.Equal(t, "$or(a = b, s $nin [1], lines elemMatch(sku = k))", q.String())

	boom := errors.New("boom")
	_, err = MapQueryFields(q, func(Path) (Path, error) { return EmptyPath, boom })
	assert.ErrorIs(t, err, boom)
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort([]byte(`[{"name":"$asc"},{"created":"$desc"}]`))
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, "name asc", s[0].String())
	assert.Equal(t, "created desc", s[1].String())

	_, err = ParseSort([]byte(`{"name":"sideways"}`))
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}
