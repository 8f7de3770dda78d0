package render

import (
	"errors"
	"net/http"

	"levee/core"

	"github.com/twitchtv/twirp"
)

// Err maps an error onto the wire. Action rejection codes keep their
// numeric code with a 400; twirp errors translate by their class.
func Err(w http.ResponseWriter, err error) {
	var code core.ErrorCode
	if errors.As(err, &code) {
		Error(w, http.StatusBadRequest, int(code), err)
		return
	}

	if twerr, ok := err.(twirp.Error); ok {
		Error(w, twirp.ServerHTTPStatusFromErrorCode(twerr.Code()), -1, errors.New(twerr.Msg()))
		return
	}

	Error(w, http.StatusInternalServerError, -1, err)
}
