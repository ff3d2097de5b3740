package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(d *DappTokens) []string {
	var out []string
	for _, e := range d.Entries() {
		out = append(out, e.Key)
	}
	return out
}

func TestDecode_Array(t *testing.T) {
	d, err := Decode(strings.NewReader(`[{"symbol":"A"},{"symbol":"B"}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"0", "1"}, keys(d))

	first, ok := d.Entries()[0].Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A", first["symbol"])
}

func TestDecode_ObjectKeepsKeyOrder(t *testing.T) {
	d, err := Decode(strings.NewReader(`{"ZRX":{"decimals":18},"BUSD":{"decimals":18},"ADA":{"decimals":18}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"ZRX", "BUSD", "ADA"}, keys(d))

	fields := d.Entries()[0].Value.(map[string]any)
	assert.Equal(t, json.Number("18"), fields["decimals"])
}

func TestDecode_TokenListDocument(t *testing.T) {
	d, err := Decode(strings.NewReader(`{"name":"Pancake","tokens":[{"symbol":"CAKE"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`"tokens"`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`[{"symbol":`))
	assert.Error(t, err)
}

func TestFromMap_SortedKeys(t *testing.T) {
	d := FromMap(map[string]any{"b": 1, "a": 2, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, keys(d))
}

func TestNilCollection(t *testing.T) {
	var d *DappTokens
	assert.Equal(t, 0, d.Len())
	assert.Nil(t, d.Entries())
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"symbol":"A"}]`), 0644))

	src := FileSource{Path: path}
	first, err := src.Tokens(context.Background())
	require.NoError(t, err)
	second, err := src.Tokens(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Len())
	assert.NotSame(t, first, second, "every load is a new collection")

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Tokens(context.Background())
	assert.Error(t, err)
}

func TestURLSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"tokens":[{"symbol":"A"},{"symbol":"B"}]}`))
	}))
	defer srv.Close()

	d, err := URLSource{URL: srv.URL + "/tokens.json"}.Tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	_, err = URLSource{URL: srv.URL + "/missing"}.Tokens(context.Background())
	assert.Error(t, err)
}
