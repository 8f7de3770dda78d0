// Package param binds request parameters, query string and json body,
// onto tagged structs.
package param

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/schema"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
	decoder.SetAliasTag("json")
}

// Binding bind query and body onto v
func Binding(r *http.Request, v interface{}) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
			return err
		}
	}

	if err := r.ParseForm(); err != nil {
		return err
	}
	return decoder.Decode(v, r.Form)
}
