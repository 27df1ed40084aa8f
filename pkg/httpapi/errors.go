package httpapi

import (
	"errors"
	"net/http"

	"github.com/chqlbuilder/chqlbuilder/pkg/compileerr"
)

// writeCompileError reports a compiler failure as a 400 carrying its kind as
// the error code, or a 500 for anything the compiler didn't itself classify.
func writeCompileError(w http.ResponseWriter, err error) {
	var compileError *compileerr.Error
	if errors.As(err, &compileError) {
		sendError(w, http.StatusBadRequest, compileError.Kind.String(), compileError.Message, compileError)
		return
	}
	sendError(w, http.StatusInternalServerError, "internal_error", "failed to compile request", err)
}
