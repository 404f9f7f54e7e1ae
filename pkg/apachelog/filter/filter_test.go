package filter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog/filter"
)

var sample = apachelog.Record{
	"Remote-Host":  "127.0.0.1",
	"Remote-User":  "-",
	"Request":      "GET /index.html HTTP/1.1",
	"Final-Status": "200",
	"User-Agent":   "Mozilla/5.0 (compatible; Googlebot/2.1)",
}

func TestPredicate_Test(t *testing.T) {
	tests := []struct {
		name string
		pred filter.Predicate
		want bool
	}{
		{"is equal", filter.Predicate{Field: "Final-Status", Value: "200", Comparison: filter.Is}, true},
		{"is default comparison", filter.Predicate{Field: "Final-Status", Value: "200"}, true},
		{"is different", filter.Predicate{Field: "Final-Status", Value: "404", Comparison: filter.Is}, false},
		{"is case sensitive", filter.Predicate{Field: "Request", Value: "get /index.html HTTP/1.1"}, false},
		{"is regexp", filter.Predicate{Field: "Final-Status", Value: `regexp:^2\d\d$`}, true},
		{"is regexp miss", filter.Predicate{Field: "Final-Status", Value: `regexp:^4\d\d$`}, false},
		{"is regexp matches anywhere", filter.Predicate{Field: "User-Agent", Value: "regexp:Googlebot"}, true},
		{"isnot", filter.Predicate{Field: "Final-Status", Value: "404", Comparison: filter.IsNot}, true},
		{"isnot equal", filter.Predicate{Field: "Final-Status", Value: "200", Comparison: filter.IsNot}, false},
		{"includes", filter.Predicate{Field: "Request", Value: "/index", Comparison: filter.Includes}, true},
		{"includes miss", filter.Predicate{Field: "Request", Value: "/admin", Comparison: filter.Includes}, false},
		{"includes regexp", filter.Predicate{Field: "User-Agent", Value: "regexp:(?i)googlebot", Comparison: filter.Includes}, true},
		{"excludes", filter.Predicate{Field: "Request", Value: "/admin", Comparison: filter.Excludes}, true},
		{"excludes hit", filter.Predicate{Field: "Request", Value: "/index", Comparison: filter.Excludes}, false},
		{"missing field", filter.Predicate{Field: "Referer", Value: "-"}, false},
		{"missing field negated", filter.Predicate{Field: "Referer", Value: "-", Comparison: filter.IsNot}, false},
		{"missing field excludes", filter.Predicate{Field: "Referer", Value: "x", Comparison: filter.Excludes}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pred.Test(sample)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicate_RegexpNeverLiteral(t *testing.T) {
	// The text after the prefix equals the field value, but as a pattern it
	// does not match it.
	rec := apachelog.Record{"Final-Status": `^4\d\d$`}

	got, err := filter.Predicate{Field: "Final-Status", Value: `regexp:^4\d\d$`}.Test(rec)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = filter.Predicate{Field: "Final-Status", Value: `^4\d\d$`}.Test(rec)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestPredicate_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		pred  filter.Predicate
		field string
	}{
		{"empty field", filter.Predicate{Value: "200"}, "field"},
		{"blank field", filter.Predicate{Field: "  ", Value: "200"}, "field"},
		{"unknown comparison", filter.Predicate{Field: "Final-Status", Value: "200", Comparison: "LIKE-ISH"}, "comparison"},
		{"invalid regexp", filter.Predicate{Field: "Request", Value: "regexp:[a-"}, "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.pred.Test(sample)
			require.Error(t, err)

			var pe *filter.PredicateError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestSet_Empty(t *testing.T) {
	for _, mode := range []filter.Mode{filter.ModeAnd, filter.ModeOr} {
		t.Run(mode.String(), func(t *testing.T) {
			s := filter.NewSet(mode)
			assert.True(t, s.Match(sample))
			assert.True(t, s.Match(apachelog.Record{}))
		})
	}

	var nilSet *filter.Set
	assert.True(t, nilSet.Match(sample))
	assert.Equal(t, 0, nilSet.Len())
}

func TestSet_Combination(t *testing.T) {
	p1 := filter.Predicate{Field: "Final-Status", Value: "200"}
	p2 := filter.Predicate{Field: "Remote-Host", Value: "127.0.0.1"}

	records := []struct {
		name    string
		rec     apachelog.Record
		wantAnd bool
		wantOr  bool
	}{
		{"both", apachelog.Record{"Final-Status": "200", "Remote-Host": "127.0.0.1"}, true, true},
		{"only first", apachelog.Record{"Final-Status": "200", "Remote-Host": "10.0.0.1"}, false, true},
		{"only second", apachelog.Record{"Final-Status": "500", "Remote-Host": "127.0.0.1"}, false, true},
		{"neither", apachelog.Record{"Final-Status": "500", "Remote-Host": "10.0.0.1"}, false, false},
		{"missing fields", apachelog.Record{}, false, false},
	}

	and := filter.NewSet(filter.ModeAnd)
	require.NoError(t, and.Add(p1))
	require.NoError(t, and.Add(p2))

	or := filter.NewSet(filter.ModeOr)
	require.NoError(t, or.Add(p1))
	require.NoError(t, or.Add(p2))

	for _, tt := range records {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantAnd, and.Match(tt.rec), "and")
			assert.Equal(t, tt.wantOr, or.Match(tt.rec), "or")

			// AND agrees with testing each predicate on its own
			ok1, _ := p1.Test(tt.rec)
			ok2, _ := p2.Test(tt.rec)
			assert.Equal(t, ok1 && ok2, and.Match(tt.rec))
			assert.Equal(t, ok1 || ok2, or.Match(tt.rec))
		})
	}
}

func TestSet_ParsedLine(t *testing.T) {
	m := apachelog.MustCompile(`%h %l %u %t "%r" %>s %b`)
	rec, err := m.Parse(`127.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET /index.html HTTP/1.1" 200 1043`)
	require.NoError(t, err)

	s := filter.NewSet(filter.ModeAnd)
	require.NoError(t, s.Add(filter.Predicate{Field: "Final-Status", Value: "200", Comparison: filter.Is}))
	assert.True(t, s.Match(rec))

	s = filter.NewSet(filter.ModeAnd)
	require.NoError(t, s.Add(filter.Predicate{Field: "Final-Status", Value: `regexp:^4\d\d$`, Comparison: filter.Includes}))
	assert.False(t, s.Match(rec))
}

func TestSet_AddMalformed(t *testing.T) {
	s := filter.NewSet(filter.ModeAnd)
	require.NoError(t, s.Add(filter.Predicate{Field: "Final-Status", Value: "200"}))

	err := s.Add(filter.Predicate{Field: "Request", Value: "regexp:(unclosed"})
	require.Error(t, err)

	var pe *filter.PredicateError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Index)
	assert.Equal(t, "Request", pe.Predicate)
	assert.Contains(t, err.Error(), "invalid regular expression")
	assert.NotNil(t, errors.Unwrap(err))

	// the malformed predicate was not added
	assert.Equal(t, 1, s.Len())
}

func TestSet_Predicates(t *testing.T) {
	s := filter.NewSet(filter.ModeOr)
	require.NoError(t, s.AddExpr("Final-Status=200"))
	require.NoError(t, s.Add(filter.Predicate{Field: "Request", Value: "/admin", Comparison: "includes"}))

	assert.Equal(t, filter.ModeOr, s.Mode())
	assert.Equal(t, []filter.Predicate{
		{Field: "Final-Status", Value: "200", Comparison: filter.Is},
		{Field: "Request", Value: "/admin", Comparison: filter.Includes},
	}, s.Predicates())
	assert.Equal(t, "or(Final-Status=200, Request~/admin)", s.String())
	assert.Equal(t, "no filter", filter.NewSet(filter.ModeAnd).String())
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		expr string
		want filter.Predicate
	}{
		{"Final-Status=200", filter.Predicate{Field: "Final-Status", Value: "200", Comparison: filter.Is}},
		{"Final-Status!=200", filter.Predicate{Field: "Final-Status", Value: "200", Comparison: filter.IsNot}},
		{"Request~/admin", filter.Predicate{Field: "Request", Value: "/admin", Comparison: filter.Includes}},
		{"Request!~/admin", filter.Predicate{Field: "Request", Value: "/admin", Comparison: filter.Excludes}},
		{"Request~regexp:^GET /a=b~c", filter.Predicate{Field: "Request", Value: "regexp:^GET /a=b~c", Comparison: filter.Includes}},
		{" Remote-User =", filter.Predicate{Field: "Remote-User", Value: "", Comparison: filter.Is}},
		{"Status(!200,304)=x", filter.Predicate{Field: "Status(!200,304)", Value: "x", Comparison: filter.Is}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := filter.ParseExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseExpr_Invalid(t *testing.T) {
	for _, expr := range []string{"", "Final-Status", "=200", "!=200", " ~x"} {
		_, err := filter.ParseExpr(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    filter.Mode
		wantErr bool
	}{
		{"", filter.ModeAnd, false},
		{"and", filter.ModeAnd, false},
		{"AND", filter.ModeAnd, false},
		{"or", filter.ModeOr, false},
		{" Or ", filter.ModeOr, false},
		{"xor", filter.ModeAnd, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := filter.ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseComparison(t *testing.T) {
	tests := map[string]filter.Comparison{
		"":             filter.Is,
		"is":           filter.Is,
		"ISNOT":        filter.IsNot,
		"is-not":       filter.IsNot,
		"INC":          filter.Includes,
		"includes":     filter.Includes,
		"EXC":          filter.Excludes,
		"not-includes": filter.Excludes,
	}
	for in, want := range tests {
		got, err := filter.ParseComparison(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := filter.ParseComparison("between")
	assert.Error(t, err)
}
