package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNamedQuestionStyle(t *testing.T) {
	query := "select * from repos where language = :lang and stars > :stars"
	bound, args, err := bindNamed(query, map[string]any{"lang": "go", "stars": 100}, questionPlaceholders)
	require.NoError(t, err)
	assert.Equal(t, "select * from repos where language = ? and stars > ?", bound)
	assert.Equal(t, []any{"go", 100}, args)
}

func TestBindNamedDollarStyle(t *testing.T) {
	query := "select :a, :b, :a"
	bound, args, err := bindNamed(query, map[string]any{"a": 1, "b": 2}, dollarPlaceholders)
	require.NoError(t, err)
	assert.Equal(t, "select $1, $2, $3", bound)
	// A parameter referenced twice is bound twice, in reference order.
	assert.Equal(t, []any{1, 2, 1}, args)
}

func TestBindNamedMissingParameter(t *testing.T) {
	_, _, err := bindNamed("select :missing", map[string]any{}, questionPlaceholders)
	require.ErrorIs(t, err, ErrBadParameter)

	var paramErr *ParameterError
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "missing", paramErr.Name)
}

func TestBindNamedIgnoresUnreferencedParams(t *testing.T) {
	bound, args, err := bindNamed("select 1", map[string]any{"unused": true}, questionPlaceholders)
	require.NoError(t, err)
	assert.Equal(t, "select 1", bound)
	assert.Empty(t, args)
}

func TestBindNamedSkipsQuotedRegions(t *testing.T) {
	query := `select ':nope' as a, ":also" as b, 'it''s :fine' as c, :real`
	bound, args, err := bindNamed(query, map[string]any{"real": 7}, questionPlaceholders)
	require.NoError(t, err)
	assert.Equal(t, `select ':nope' as a, ":also" as b, 'it''s :fine' as c, ?`, bound)
	assert.Equal(t, []any{7}, args)
}

func TestBindNamedSkipsCasts(t *testing.T) {
	query := "select value::text from t where id = :id"
	bound, args, err := bindNamed(query, map[string]any{"id": 3}, dollarPlaceholders)
	require.NoError(t, err)
	assert.Equal(t, "select value::text from t where id = $1", bound)
	assert.Equal(t, []any{3}, args)
}

func TestBindNamedSkipsLineComments(t *testing.T) {
	query := "select :id -- not :this\nfrom t"
	bound, args, err := bindNamed(query, map[string]any{"id": 1}, questionPlaceholders)
	require.NoError(t, err)
	assert.Equal(t, "select ? -- not :this\nfrom t", bound)
	assert.Equal(t, []any{1}, args)
}
